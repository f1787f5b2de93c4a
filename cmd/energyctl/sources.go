package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"energy-dashboard/internal/models"
	"energy-dashboard/internal/services"
	"energy-dashboard/internal/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Check that each source can be loaded and parsed",
	Long: `Loads every configured source from its backend and reports its size and
row count. Exits non-zero if any source fails.`,
	Args: cobra.NoArgs,
	RunE: runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	files := cfg.FileNames()
	out := cmd.OutOrStdout()

	return withLoader(func(loader source.Loader) error {
		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Sources (%s backend)", loader.Backend())))

		failed := 0
		for _, name := range models.AllSources {
			line := nameColumn.Render(string(name)) + fileColumn.Render(files[name])

			content, err := loader.Load(cmd.Context(), name)
			if err != nil {
				failed++
				fmt.Fprintln(out, line + errorStyle.Render(err.Error()))
				continue
			}

			rows, err := services.ParseRows(name, content)
			if err != nil {
				failed++
				fmt.Fprintln(out, line + errorStyle.Render(err.Error()))
				continue
			}

			fmt.Fprintln(out, line + successStyle.Render(fmt.Sprintf("%s, %s rows",
				humanize.Bytes(uint64(len(content))), humanize.Comma(int64(len(rows))))))
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d sources failed", failed, len(models.AllSources))
		}
		return nil
	})
}
