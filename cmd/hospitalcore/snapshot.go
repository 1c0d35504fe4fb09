package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"hospitalcore/internal/blob"
	"hospitalcore/internal/core"
	"hospitalcore/internal/export"
	"hospitalcore/pkg/domain"
)

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect and export the persisted state",
	}
	cmd.AddCommand(newSnapshotShowCmd(a))
	cmd.AddCommand(newSnapshotExportCmd(a))
	cmd.AddCommand(newSnapshotExportsCmd(a))
	return cmd
}

func newSnapshotShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the persisted document as indented JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.showSnapshot(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func (a *app) showSnapshot(ctx context.Context, out io.Writer) error {
	store, closeStore, err := core.OpenDocumentStore(ctx, a.storageConfig())
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer func() { _ = closeStore() }()

	data, err := store.Read(ctx)
	if errors.Is(err, domain.ErrNoDocument) {
		return fmt.Errorf("%s: %w", store.Driver(), err)
	}
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	doc, err := core.Decode(data)
	if err != nil {
		return err
	}
	pretty, err := core.Encode(doc)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(pretty))
	return err
}

func newSnapshotExportCmd(a *app) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the patient list as CSV into the blob store",
		Long: `Export renders the persisted patient records as CSV and stores the file
in the configured blob store. Keys are never overwritten.

Example:
  hospitalcore snapshot export --key exports/patients.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.exportPatients(cmd.Context(), cmd.OutOrStdout(), key)
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "blob key (default: exports/patients-<timestamp>.csv)")
	return cmd
}

func (a *app) exportPatients(ctx context.Context, out io.Writer, key string) error {
	store, closeStore, err := core.OpenDocumentStore(ctx, a.storageConfig())
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer func() { _ = closeStore() }()

	codec := core.NewCodec(store, core.WithCodecLogger(a.logger))
	svc := core.NewService(codec, core.WithLogger(a.logger))
	if !svc.Load(ctx) {
		return fmt.Errorf("load document: %w", svc.LastPersistenceError())
	}

	blobs, err := blob.Open(ctx, a.blobConfig())
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	art, err := export.NewExporter(blobs).ExportPatients(ctx, key, svc.Patients(), codec.Revision())
	if err != nil {
		return err
	}
	a.logger.Info("patients exported", "key", art.Key, "records", art.Records, "revision", art.Revision)
	_, err = fmt.Fprintf(out, "exported %d records to %s (%d bytes)\n", art.Records, art.Key, art.SizeBytes)
	return err
}

func newSnapshotExportsCmd(a *app) *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "exports",
		Short: "List stored patient exports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.listExports(cmd.Context(), cmd.OutOrStdout(), prefix)
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", export.DefaultPrefix, "key prefix to list")
	return cmd
}

func (a *app) listExports(ctx context.Context, out io.Writer, prefix string) error {
	blobs, err := blob.Open(ctx, a.blobConfig())
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	arts, err := export.NewExporter(blobs).List(ctx, prefix)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tRECORDS\tBYTES\tREVISION")
	for _, art := range arts {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", art.Key, art.Records, art.SizeBytes, art.Revision)
	}
	return tw.Flush()
}
