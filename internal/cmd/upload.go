package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gravitrone/concierge/internal/api"
)

// UploadCmd returns the `concierge upload` command.
func UploadCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file to the assistant's file drop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := loadClient(cmd)
			if err != nil {
				return err
			}
			if cfg.UploadToken == "" {
				return fmt.Errorf("no upload token configured (run concierge setup)")
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			info, err := f.Stat()
			if err != nil {
				return err
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", args[0])
			}
			if name == "" {
				name = filepath.Base(args[0])
			}

			result, err := client.UploadFile(cmd.Context(), cfg.UploadToken, name, f, info.Size(), nil)
			if err != nil {
				return fmt.Errorf("upload: %w", err)
			}
			printUpload(cmd, result)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "file name to store under (default: base name of file)")
	return cmd
}

func printUpload(cmd *cobra.Command, r *api.UploadResult) {
	where := ""
	if r.Path != "" {
		where = " to " + r.Path
	}
	fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s (%d bytes)%s\n", r.Name, r.Size, where)
}
