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
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/xxhh1112/AirAssembly/pkg/air"
	"github.com/xxhh1112/AirAssembly/pkg/field"
	"github.com/xxhh1112/AirAssembly/pkg/prover"
)

// proveCmd runs the proof-side executor over a schema and concrete inputs,
// and checks the transition constraints vanish on the trace domain.
var proveCmd = &cobra.Command{
	Use:   "prove [flags] schema_file",
	Short: "Generate an execution trace and evaluate its constraints.",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		configureLogging(cmd)
		//
		var (
			schema    = compileSchema(args[0])
			inputs    = readInputs(GetString(cmd, "inputs"))
			seed      = parseSeed(GetString(cmd, "seed"))
			extension = GetUint(cmd, "extension")
		)
		//
		instance, err := prover.Instantiate(schema, prover.WithExtensionFactor(extension))
		if err != nil {
			log.Errorln(err)
			os.Exit(1)
		}
		//
		start := time.Now()
		//
		ctx, err := instance.InitProof(inputs)
		if err != nil {
			log.Errorln(err)
			os.Exit(1)
		}
		//
		trace, err := ctx.GenerateExecutionTrace(seed)
		if err != nil {
			log.Errorln(err)
			os.Exit(1)
		}
		//
		log.Debugf("generated %d x %d execution trace", trace.LaneCount(), trace.Width())
		//
		polys, err := instance.Field().InterpolateRoots(ctx.ExecutionDomain(), trace)
		if err != nil {
			log.Errorln(err)
			os.Exit(1)
		}
		//
		evals, err := ctx.EvaluateTransitionConstraints(polys)
		if err != nil {
			log.Errorln(err)
			os.Exit(1)
		}
		// Constraints must vanish on every trace-domain point.
		stride := evals.Width() / ctx.TraceLength()
		failures := 0
		//
		for j := uint(0); j < ctx.TraceLength(); j++ {
			for _, v := range evals.Column(j * stride) {
				if v != 0 {
					failures++
				}
			}
		}
		//
		if failures > 0 {
			log.Errorf("%d constraint cells do not vanish on the trace domain", failures)
			os.Exit(1)
		}
		//
		fmt.Printf("trace of %d steps generated and constrained in %s\n",
			ctx.TraceLength(), time.Since(start))
	},
}

// Read concrete inputs from a JSON file holding one (possibly nested) array
// of values per input register.
func readInputs(filename string) []air.InputTree {
	if filename == "" {
		return nil
	}
	//
	bytes, err := os.ReadFile(filename)
	if err != nil {
		log.Errorln(err)
		os.Exit(1)
	}
	//
	var raw []interface{}
	//
	if err := json.Unmarshal(bytes, &raw); err != nil {
		log.Errorln(err)
		os.Exit(1)
	}
	//
	inputs := make([]air.InputTree, len(raw))
	//
	for i, r := range raw {
		tree, err := asInputTree(r)
		if err != nil {
			log.Errorf("input %d: %v", i, err)
			os.Exit(1)
		}
		//
		inputs[i] = tree
	}
	//
	return inputs
}

// Convert a decoded JSON value into an input tree.
func asInputTree(raw interface{}) (air.InputTree, error) {
	items, ok := raw.([]interface{})
	//
	if !ok || len(items) == 0 {
		return air.InputTree{}, fmt.Errorf("expected a non-empty sequence")
	}
	// Nested sequence?
	if _, nested := items[0].([]interface{}); nested {
		kids := make([]air.InputTree, len(items))
		//
		for i, item := range items {
			kid, err := asInputTree(item)
			if err != nil {
				return air.InputTree{}, err
			}
			//
			kids[i] = kid
		}
		//
		return air.NestOf(kids...), nil
	}
	// Flat sequence of values.
	values := make([]field.Element, len(items))
	//
	for i, item := range items {
		n, ok := item.(float64)
		//
		if !ok || n < 0 || n != float64(uint64(n)) {
			return air.InputTree{}, fmt.Errorf("invalid value %v", item)
		}
		//
		values[i] = uint64(n)
	}
	//
	return air.LeafOf(values...), nil
}

// Parse a comma-separated seed vector.
func parseSeed(text string) []field.Element {
	if text == "" {
		return nil
	}
	//
	parts := strings.Split(text, ",")
	seed := make([]field.Element, len(parts))
	//
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 0, 64)
		if err != nil {
			log.Errorf("invalid seed element %q", p)
			os.Exit(1)
		}
		//
		seed[i] = n
	}
	//
	return seed
}

func init() {
	proveCmd.Flags().String("inputs", "", "JSON file of concrete input values")
	proveCmd.Flags().String("seed", "", "comma-separated seed vector for seeded exports")
	proveCmd.Flags().Uint("extension", prover.DefaultExtensionFactor,
		"evaluation domain extension factor")
	rootCmd.AddCommand(proveCmd)
}
