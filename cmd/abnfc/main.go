// Command abnfc compiles an ABNF grammar file and applies one of its
// rules to an input file, printing the resulting capture tree.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ldr/exabnf/abnf"
	"github.com/ldr/exabnf/abnferr"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "abnfc",
		Short:         "Compile and apply ABNF grammars with inline semantic actions",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(newMatchCmd())
	return root
}

func newMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match <grammar-file> <rule> <input-file>",
		Short: "Match a rule from a compiled grammar against an input file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd, args[0], args[1], args[2])
		},
	}
}

func runMatch(cmd *cobra.Command, grammarPath, rule, inputPath string) error {
	grammarText, err := os.ReadFile(grammarPath)
	if err != nil {
		return fmt.Errorf("reading grammar file: %w", err)
	}
	inputBytes, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading input file: %w", err)
	}

	set, err := abnf.Load(grammarText)
	if err != nil {
		return err
	}

	result, err := abnf.Apply(set, rule, inputBytes, nil)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		StringText string `json:"string_text"`
		Rest       string `json:"rest"`
		Values     any    `json:"values"`
	}{
		StringText: string(result.StringText),
		Rest:       string(result.Rest),
		Values:     result.Values.Value,
	})
}

// exitCodeFor maps the structured error surface from spec §6 to process
// exit statuses.
func exitCodeFor(err error) int {
	var abnfErr *abnferr.Error
	if !errors.As(err, &abnfErr) {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Fprintln(os.Stderr, abnfErr.Error())
	switch abnfErr.Kind {
	case abnferr.TypeIncompleteParse:
		return 2
	case abnferr.TypeInvalidGrammar:
		return 3
	case abnferr.TypeUnresolvedRule:
		return 4
	case abnferr.TypeUnknownRule:
		return 5
	case abnferr.TypeNoMatch:
		return 6
	default:
		return 1
	}
}
