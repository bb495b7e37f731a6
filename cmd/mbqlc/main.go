// Command mbqlc compiles a single MBQL query file to SQL for one dialect
// and prints the result. Flag shape follows joaosoft-db-mcp/cli.go's
// urfave/cli conventions (StringFlag with Usage text, an app.Action
// closure, query and schema files given as --query/--schema flags).
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/foucault-labs/mbqlsql/compiler"
	"github.com/foucault-labs/mbqlsql/dialect"
	"github.com/foucault-labs/mbqlsql/mbql"
	"github.com/foucault-labs/mbqlsql/metadata"
)

func main() {
	app := cli.NewApp()
	app.Name = "mbqlc"
	app.HelpName = "mbqlc"
	app.Version = "0.1.0"
	app.Usage = "compile an MBQL query file to SQL"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "query, q",
			Usage: "path to a JSON file holding the outer query envelope",
		},
		cli.StringFlag{
			Name:  "schema, s",
			Usage: "path to a JSON file holding the {tables, fields} metadata catalog",
		},
		cli.StringFlag{
			Name:  "dialect, d",
			Value: "sql",
			Usage: "target dialect: sql, mysql, postgres, sqlserver, oracle, sqlite",
		},
	}

	app.Action = func(c *cli.Context) error {
		queryPath := c.String("query")
		schemaPath := c.String("schema")
		if queryPath == "" || schemaPath == "" {
			cli.ShowAppHelp(c)
			return fmt.Errorf("both --query and --schema are required")
		}

		queryData, err := os.ReadFile(queryPath)
		if err != nil {
			return err
		}
		schemaData, err := os.ReadFile(schemaPath)
		if err != nil {
			return err
		}

		outer, err := mbql.ParseOuterQuery(queryData)
		if err != nil {
			return err
		}
		store, err := metadata.LoadMemStore(schemaData)
		if err != nil {
			return err
		}

		reg := dialect.NewRegistry()
		d, err := reg.Resolve(c.String("dialect"))
		if err != nil {
			return err
		}

		compiled, err := compiler.Compile(d, store, outer, nil)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(struct {
			SQL    string `json:"sql"`
			Params []any  `json:"params"`
		}{compiled.SQL, compiled.Params}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "mbqlc:", err)
		os.Exit(1)
	}
}
