// Command payimport imports communal payment files into the payments database.
package main

import (
	"os"

	"github.com/JonMunkholm/payimport/cmd/payimport/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
