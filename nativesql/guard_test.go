package nativesql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuard_AcceptsSelect(t *testing.T) {
	assert.NoError(t, Guard("select * from orders where status = 'open'"))
}

func TestGuard_AcceptsWithCTE(t *testing.T) {
	assert.NoError(t, Guard("WITH recent AS (SELECT * FROM orders) SELECT * FROM recent"))
}

func TestGuard_RejectsEmpty(t *testing.T) {
	assert.Error(t, Guard("   "))
}

func TestGuard_RejectsNonSelectPrefix(t *testing.T) {
	assert.Error(t, Guard("orders"))
}

func TestGuard_RejectsMultipleStatements(t *testing.T) {
	assert.Error(t, Guard("SELECT * FROM orders; DROP TABLE orders"))
}

func TestGuard_IgnoresSemicolonInsideStringLiteral(t *testing.T) {
	assert.NoError(t, Guard("SELECT * FROM orders WHERE name = 'a;b'"))
}

func TestGuard_RejectsMutatingKeyword(t *testing.T) {
	for _, stmt := range []string{
		"SELECT * FROM orders; INSERT INTO orders VALUES (1)",
		"SELECT * FROM orders WHERE id IN (DELETE FROM x)",
		"SELECT exec sp_who",
	} {
		assert.Error(t, Guard(stmt), stmt)
	}
}

func TestGuard_AllowsKeywordSubstringInIdentifier(t *testing.T) {
	assert.NoError(t, Guard("SELECT * FROM createdorders"))
}

func TestGuard_IgnoresComments(t *testing.T) {
	assert.NoError(t, Guard("SELECT * FROM orders -- DROP TABLE orders\n"))
	assert.NoError(t, Guard("SELECT * FROM orders /* DROP TABLE orders */"))
}
