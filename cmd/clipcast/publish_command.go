package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"clipcast/internal/media"
	"clipcast/internal/pipeline"
)

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var titleFlag string
	var descriptionFlag string
	var privacyFlag string
	var tagsFlag []string
	var saveOnFailure bool

	cmd := &cobra.Command{
		Use:   "publish <recording>",
		Short: "Convert a recording and upload it to YouTube",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireClientID(); err != nil {
				return err
			}

			recording, err := readRecording(args[0])
			if err != nil {
				return err
			}

			renderer := newStatusRenderer()
			machine, cleanup, err := ctx.buildMachine(renderer.observe)
			if err != nil {
				return err
			}
			defer cleanup()

			runErr := machine.RequestPublish(cmd.Context(), args[0], recording)
			renderer.finishBar()
			if runErr != nil {
				return publishFailure(cmd, machine, saveOnFailure, runErr)
			}

			meta, err := collectMetadata(cmd.InOrStdin(), cmd.OutOrStdout(),
				titleFlag, descriptionFlag, privacyFlag, tagsFlag)
			if err != nil {
				machine.Cancel(cmd.Context())
				return err
			}

			video, err := machine.SubmitMetadata(cmd.Context(), meta)
			renderer.finishBar()
			if err != nil {
				return publishFailure(cmd, machine, saveOnFailure, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Published %q\n%s\n", meta.Title, video.WatchURL())
			return nil
		},
	}

	cmd.Flags().StringVar(&titleFlag, "title", "", "Video title (prompted when omitted)")
	cmd.Flags().StringVar(&descriptionFlag, "description", "", "Video description")
	cmd.Flags().StringVar(&privacyFlag, "privacy", "unlisted", "Privacy status: public, unlisted, or private")
	cmd.Flags().StringSliceVar(&tagsFlag, "tag", nil, "Video tag (repeatable)")
	cmd.Flags().BoolVar(&saveOnFailure, "save-on-failure", false, "Save the held media locally when the run fails")
	return cmd
}

// publishFailure reports a failed run and optionally saves whatever media
// the machine still holds.
func publishFailure(cmd *cobra.Command, machine *pipeline.Machine, save bool, runErr error) error {
	if save && machine.Status() == pipeline.StatusFailed {
		path, err := machine.DownloadFallback(cmd.Context())
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "could not save media: %v\n", err)
		} else if path != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Saved media to %s\n", path)
		}
	}
	return runErr
}

// collectMetadata builds the publish metadata from flags, prompting on
// stdin for anything required but missing.
func collectMetadata(in io.Reader, out io.Writer, title, description, privacy string, tags []string) (media.PublishMetadata, error) {
	reader := bufio.NewReader(in)

	title = strings.TrimSpace(title)
	if title == "" {
		fmt.Fprint(out, "Title: ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return media.PublishMetadata{}, fmt.Errorf("read title: %w", err)
		}
		title = strings.TrimSpace(line)
	}

	status, err := media.ParsePrivacyStatus(privacy)
	if err != nil {
		return media.PublishMetadata{}, err
	}

	meta := media.PublishMetadata{
		Title:         title,
		Description:   description,
		PrivacyStatus: status,
		Tags:          tags,
	}
	meta = meta.Normalized()
	if err := meta.Validate(); err != nil {
		return media.PublishMetadata{}, err
	}
	return meta, nil
}
