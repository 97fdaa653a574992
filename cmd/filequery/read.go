package filequery

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/filequery/internal/commit"
	"github.com/oakwood-commons/filequery/internal/format"
	"github.com/oakwood-commons/filequery/internal/pathsafety"
	"github.com/oakwood-commons/filequery/internal/tool"
)

var (
	readOutputFormat string
	readFollowLinks  bool
)

var readCmd = &cobra.Command{
	Use:     "read <file> <query>",
	Short:   "Run a read-only query against a file and print the result",
	Example: "  filequery read config.yaml '.server.port'\n  filequery read data.json '.items | map(select(.active))' --format json",
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		filePath, query := args[0], args[1]

		root, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		resp, err := tool.Handle(rootCtx, tool.Request{
			FilePath:       filePath,
			Query:          query,
			Operation:      tool.OperationRead,
			OutputFormat:   format.OutputFormat(readOutputFormat),
			FollowSymlinks: readFollowLinks,
		}, tool.Deps{
			Tracker:     commit.NewReadTracker(),
			Resolver:    pathsafety.RootConfined{},
			ProjectRoot: root,
		})
		if err != nil {
			printCLIError(filePath, err)
			os.Exit(1)
		}
		fmt.Println(resp.Text)
	},
}

func init() {
	readCmd.Flags().StringVar(&readOutputFormat, "format", "raw", "output format: raw|json|yaml|toml")
	readCmd.Flags().BoolVar(&readFollowLinks, "follow-symlinks", false, "allow the resolved path to follow symlinks outside the project root")
}
