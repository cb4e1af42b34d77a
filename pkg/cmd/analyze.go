// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/xxhh1112/AirAssembly/pkg/air"
)

// analyzeCmd reports the degree and sizing analysis of a schema.
var analyzeCmd = &cobra.Command{
	Use:   "analyze [flags] schema_file",
	Short: "Report constraint degrees and domain sizes of a schema.",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		configureLogging(cmd)
		//
		schema := compileSchema(args[0])
		//
		report, err := air.Analyze(schema)
		if err != nil {
			log.Errorln(err)
			os.Exit(1)
		}
		//
		fmt.Print(report.String())
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
