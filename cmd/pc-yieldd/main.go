// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cmdMain = &cobra.Command{
	Use:   "pc-yieldd",
	Short: "Push Chain yield engine daemon",
}

func main() {
	cmdMain.AddCommand(cmdRun, cmdInit)
	err := cmdMain.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func check(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
