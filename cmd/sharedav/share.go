package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/panshare/sharedav/internal/sharecode"
	"github.com/panshare/sharedav/internal/store"
)

var page int

var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Manage stored share records",
}

var shareAddCmd = &cobra.Command{
	Use:   "add <root-folder-name> <share-code>",
	Short: "Store a new share code",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootName, code := args[0], args[1]
		if _, err := sharecode.Decode(code); err != nil {
			return fmt.Errorf("invalid share code: %w", err)
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		rec := &store.ShareRecord{
			CodeHash:       sharecode.Hash(code),
			RootFolderName: rootName,
			Visible:        true,
			ShareCode:      code,
		}
		if err := s.Insert(context.Background(), rec); err != nil {
			return err
		}
		fmt.Println(rec.CodeHash)
		return nil
	},
}

var shareListCmd = &cobra.Command{
	Use:   "list",
	Short: "List publicly visible shares",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		entries, last, err := s.ListVisible(context.Background(), page)
		if err != nil {
			return err
		}
		printEntries(entries, last)
		return nil
	},
}

var shareSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search visible shares by root folder or file name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		entries, last, err := s.Search(context.Background(), args[0], page)
		if err != nil {
			return err
		}
		printEntries(entries, last)
		return nil
	},
}

var shareShowCmd = &cobra.Command{
	Use:   "show <code-hash>",
	Short: "Make a share publicly visible",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setVisible(args[0], true) },
}

var shareHideCmd = &cobra.Command{
	Use:   "hide <code-hash>",
	Short: "Hide a share from the public namespace",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setVisible(args[0], false) },
}

var shareRmCmd = &cobra.Command{
	Use:   "rm <code-hash>",
	Short: "Delete a share record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		return s.Delete(context.Background(), args[0])
	},
}

func setVisible(codeHash string, visible bool) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	return s.SetVisible(context.Background(), codeHash, visible)
}

func printEntries(entries []store.ListEntry, last bool) {
	for _, e := range entries {
		fmt.Printf("%s  %s\n", e.CodeHash, e.RootFolderName)
	}
	if !last {
		fmt.Printf("-- more results on page %d --\n", page+1)
	}
}

func init() {
	shareListCmd.Flags().IntVar(&page, "page", 1, "result page (pages start at 1)")
	shareSearchCmd.Flags().IntVar(&page, "page", 1, "result page (pages start at 1)")

	shareCmd.AddCommand(shareAddCmd, shareListCmd, shareSearchCmd,
		shareShowCmd, shareHideCmd, shareRmCmd)
	rootCmd.AddCommand(shareCmd)
}
