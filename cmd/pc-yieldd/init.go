// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"os"

	"github.com/spf13/cobra"
)

var cmdInit = &cobra.Command{
	Use:   "init [file]",
	Short: "Write a sample configuration file",
	Args:  cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		path := "pc-yieldd.toml"
		if len(args) > 0 {
			path = args[0]
		}
		check(os.WriteFile(path, []byte(sampleConfig), 0644))
	},
}

const sampleConfig = `listen = ":8080"
data-dir = "data"
settlement-log = "settlement.log"
log-format = "text"
log-level = "info"

# Deployment parameters. Only read on first start - afterwards the
# persisted parameters win.
mode = "rolling"
genesis = 2025-01-01T00:00:00Z
epoch-length = "168h"
lock-length = "720h"
cooldown-length = "168h"
allowlist-root = "0000000000000000000000000000000000000000000000000000000000000000"
admin = "admin"
funder = ""
`
