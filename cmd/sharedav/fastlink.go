package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/panshare/sharedav/internal/fastlink"
	"github.com/panshare/sharedav/internal/sharecode"
	"github.com/panshare/sharedav/internal/store"
)

var fastlinkCmd = &cobra.Command{
	Use:   "fastlink",
	Short: "Convert shares to and from the FastLink interchange format",
}

var fastlinkExportCmd = &cobra.Command{
	Use:   "export <code-hash>",
	Short: "Export a stored share as a FastLink document on stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		rec, err := s.GetByHash(context.Background(), args[0])
		if err != nil {
			return err
		}
		doc, err := fastlink.Export(rec.RootFolderName, rec.ShareCode)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	},
}

var fastlinkImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import shares from a FastLink document (file or stdin)",
	Long: `Import reads a FastLink JSON document and stores one share record per
root folder found in it. Already stored shares are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw []byte
		var err error
		if len(args) == 1 {
			raw, err = os.ReadFile(args[0])
		} else {
			raw, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return fmt.Errorf("read document: %w", err)
		}

		var doc fastlink.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("parse document: %w", err)
		}
		shares, err := fastlink.Import(&doc)
		if err != nil {
			return err
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := context.Background()
		for _, share := range shares {
			rec := &store.ShareRecord{
				CodeHash:       sharecode.Hash(share.ShareCode),
				RootFolderName: share.RootFolderName,
				Visible:        true,
				ShareCode:      share.ShareCode,
			}
			switch err := s.Insert(ctx, rec); err {
			case nil:
				fmt.Printf("added   %s  %s\n", rec.CodeHash, rec.RootFolderName)
			case store.ErrDuplicate:
				fmt.Printf("skipped %s  %s (already stored)\n", rec.CodeHash, rec.RootFolderName)
			default:
				return err
			}
		}
		return nil
	},
}

func init() {
	fastlinkCmd.AddCommand(fastlinkExportCmd, fastlinkImportCmd)
	rootCmd.AddCommand(fastlinkCmd)
}
