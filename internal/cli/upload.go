package cli

import (
	"fmt"
	"io"

	"github.com/samvad-hq/samvad-uplink/internal/app"
	"github.com/spf13/cobra"
)

func newUploadCmd(rt *runtime) *cobra.Command {
	var (
		force bool
		field string
	)

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload an image to the backend",
		Long: `Upload an image file to POST /api/upload-image as multipart/form-data.

Files that are not images are rejected before any request is sent.
Content already uploaded (same SHA-256) is skipped unless --force is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uploader, err := rt.app.UploaderFor(field)
			if err != nil {
				return backendError(err)
			}
			res, err := uploader.Upload(cmd.Context(), args[0], app.UploadOptions{Force: force})
			if err != nil {
				return backendError(err)
			}
			return render(cmd.OutOrStdout(), rt.output, res, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, res.Status)
				return err
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "upload even if the same content was uploaded before")
	cmd.Flags().StringVar(&field, "field", "", "multipart form field name (default from UPLOAD_FIELD)")
	return cmd
}
