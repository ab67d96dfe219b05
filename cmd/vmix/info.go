package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/phanxgames/vmix"
)

func runInfo(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listDocuments(cmd)
	}
	key := args[0]
	doc, info, err := readDocument(cmd.Context(), key)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	h := doc.Header
	fmt.Fprintf(out, "%s\n", key)
	fmt.Fprintf(out, "  id:         %s\n", h.ID)
	fmt.Fprintf(out, "  version:    %s\n", h.Version)
	fmt.Fprintf(out, "  resolution: %dx%d\n", h.Width, h.Height)
	fmt.Fprintf(out, "  created:    %s (%s)\n", h.Date.Format("2006-01-02 15:04:05"), humanize.Time(h.Date))
	fmt.Fprintf(out, "  size:       %s\n", humanize.Bytes(uint64(info.Size)))
	fmt.Fprintf(out, "  snapshots:  %d\n", len(doc.Snapshots))
	if doc.Thumbnail != "" {
		if img, err := doc.ThumbnailImage(); err == nil {
			b := img.Bounds()
			fmt.Fprintf(out, "  thumbnail:  %dx%d\n", b.Dx(), b.Dy())
		}
	}
	fmt.Fprintf(out, "  sources:    %d\n", h.Sources)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "    ID\tNAME\tKIND\tALPHA\tDEPTH")
	for _, rec := range doc.Session.Sources {
		kind := string(rec.Producer.Kind)
		if rec.Producer.Kind == vmix.KindClone {
			kind = fmt.Sprintf("%s of %d", kind, rec.Producer.Origin)
		}
		fmt.Fprintf(tw, "    %d\t%s\t%s\t%.2f\t%.2f\n", rec.ID, rec.Name, kind, rec.Blending.Color.A, rec.Layer.Translation.Z)
	}
	return tw.Flush()
}

func listDocuments(cmd *cobra.Command) error {
	infos, err := docStore.List(cmd.Context(), "")
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "no sessions")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSIZE\tMODIFIED")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Key, humanize.Bytes(uint64(info.Size)), humanize.Time(info.LastModified))
	}
	return tw.Flush()
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	doc, _, err := readDocument(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(doc.Snapshots) == 0 {
		fmt.Fprintln(out, "no snapshots")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tSOURCES\tTAKEN")
	for _, snap := range doc.Snapshots {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", snap.ID, snap.Label, humanize.Comma(int64(len(snap.State.Sources))), humanize.Time(snap.Time))
	}
	return tw.Flush()
}
