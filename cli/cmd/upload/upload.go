package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/compozy/specmatch/cli/cmd"
	"github.com/compozy/specmatch/cli/helpers"
	"github.com/compozy/specmatch/engine/speclib"
	"github.com/compozy/specmatch/engine/speclib/ingest"
	"github.com/compozy/specmatch/engine/speclib/service"
	"github.com/compozy/specmatch/engine/speclib/uc"
	"github.com/compozy/specmatch/pkg/logger"
)

// Cmd returns the upload command.
func Cmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "upload <paths/globs...>",
		Short: "Load specification documents into the library",
		Long: `Load PDF and text specification documents into the library.

Arguments may be files, directories (loaded recursively) or doublestar globs
such as "specs/**/*.pdf". Documents already in the library are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, run, args)
		},
	}
	command.Flags().String("mode", string(speclib.ModeAppend), "Load mode: append or replace")
	return command
}

func run(ctx context.Context, c *cobra.Command, svc *service.Service, out *helpers.OutputWriter, args []string) error {
	rawMode, err := c.Flags().GetString("mode")
	if err != nil {
		return err
	}
	mode, err := speclib.ParseMode(rawMode)
	if err != nil {
		return err
	}
	paths, err := ExpandPaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return helpers.NewCliError("NO_FILES", "no files matched", fmt.Sprintf("%v", args))
	}
	files := make([]ingest.File, 0, len(paths))
	for _, path := range paths {
		file, err := ingest.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, file)
	}
	logger.FromContext(ctx).Debug("Uploading documents", "files", len(files), "mode", mode)
	result, err := svc.Upload().Execute(ctx, &uc.UploadInput{Files: files, Mode: mode})
	if err != nil {
		return err
	}
	return out.WriteData(result, helpers.RenderUpload(result))
}

// ExpandPaths resolves files, directories and glob patterns into a
// deduplicated file list, keeping argument order.
func ExpandPaths(args []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	add := func(path string) {
		clean := filepath.Clean(path)
		if _, ok := seen[clean]; ok {
			return
		}
		seen[clean] = struct{}{}
		out = append(out, clean)
	}
	for _, arg := range args {
		info, err := os.Stat(arg)
		switch {
		case err == nil && !info.IsDir():
			add(arg)
			continue
		case err == nil && info.IsDir():
			arg = filepath.Join(arg, "**", "*")
		}
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, helpers.NewCliError("BAD_PATTERN", "invalid glob pattern", fmt.Sprintf("%s: %v", arg, err))
		}
		if len(matches) == 0 {
			return nil, helpers.NewCliError("NO_MATCH", "path or pattern matched no files", arg)
		}
		for _, match := range matches {
			add(match)
		}
	}
	return out, nil
}
