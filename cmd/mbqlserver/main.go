// Command mbqlserver starts the MBQL MCP server over stdio. Mirrors
// joaosoft-db-mcp/main.go's shape (resolve server, defer closing the database,
// serve stdio, fatal on error) adapted to this module's own constructor.
package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/foucault-labs/mbqlsql/dbexec"
	"github.com/foucault-labs/mbqlsql/mcpserver"
	"github.com/foucault-labs/mbqlsql/metadata"
)

func main() {
	log := logrus.New()

	store := metadata.NewMemStore()
	if schemaPath := os.Getenv("MBQL_SCHEMA_FILE"); schemaPath != "" {
		data, err := os.ReadFile(schemaPath)
		if err != nil {
			log.WithError(err).Fatal("could not read MBQL_SCHEMA_FILE")
		}
		loaded, err := metadata.LoadMemStore(data)
		if err != nil {
			log.WithError(err).Fatal("could not parse MBQL_SCHEMA_FILE")
		}
		store = loaded
	}

	db, driver, err := dbexec.OpenFromEnv(log)
	if err != nil {
		log.WithError(err).Fatal("error setting up database connection")
	}
	log.WithField("driver", driver).WithField("connected", db != nil).Info("mbqlserver starting")

	srv := mcpserver.New(store, db, log)
	defer func() {
		if db != nil {
			db.Close()
		}
	}()

	if err := srv.Start(); err != nil {
		log.WithError(err).Fatal("error starting server")
	}
}
