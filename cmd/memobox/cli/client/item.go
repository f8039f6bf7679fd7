package client

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/mwantia/memobox/internal/agent"
	"github.com/mwantia/memobox/pkg/db/models"
	"github.com/mwantia/memobox/pkg/repository"
	"github.com/mwantia/memobox/pkg/storage"
	"github.com/spf13/cobra"
)

func NewItemCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Manage items",
		Long:  "Capture, list, inspect and delete items together with their files and tags.",
	}

	cmd.AddCommand(NewItemAddCommand())
	cmd.AddCommand(NewItemListCommand())
	cmd.AddCommand(NewItemShowCommand())
	cmd.AddCommand(NewItemEditCommand())
	cmd.AddCommand(NewItemRecentCommand())
	cmd.AddCommand(NewItemRemoveCommand())
	cmd.AddCommand(NewItemTagCommand())
	cmd.AddCommand(NewItemUntagCommand())
	cmd.AddCommand(NewItemFilesCommand())
	cmd.AddCommand(NewItemCatCommand())

	return cmd
}

func printItems(w io.Writer, items []models.Item) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tDESCRIPTION\tCREATED\tVIEWED")
	for _, item := range items {
		viewed := "never"
		if item.Viewed() {
			viewed = humanize.Time(*item.LastViewed)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			item.ID, orDash(item.Title), orDash(item.Description), humanize.Time(item.CreatedAt), viewed)
	}
	tw.Flush()
}

func printFiles(w io.Writer, files []models.ItemFile) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tSIZE\tMIME\tPATH")
	for _, f := range files {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			f.ID, f.FileType, humanize.IBytes(uint64(f.FileSize)), f.MimeType, f.FilePath)
	}
	tw.Flush()
}

func NewItemAddCommand() *cobra.Command {
	var (
		title string
		memo  string
		photo string
		files []string
		tags  []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Capture a new item",
		Long: `Capture a new item from a photo and/or a memo, tagged with exactly one tag.
With --file any local files are attached instead and tags are optional.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithAgent(cmd, func(ctx context.Context, ma *agent.MemoboxAgent) error {
				tagIDs, err := resolveTagIDs(ctx, ma.Tags(), tags)
				if err != nil {
					return err
				}

				var id uint
				if len(files) > 0 {
					id, err = addFiles(ctx, ma.Items(), title, memo, files, tagIDs)
				} else {
					id, err = capture(ctx, ma.Items(), title, memo, photo, tagIDs)
				}
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Created item %d\n", id)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "item title")
	cmd.Flags().StringVarP(&memo, "memo", "m", "", "memo text, stored as a text file and as the description")
	cmd.Flags().StringVarP(&photo, "photo", "p", "", "path of a JPEG photo to attach")
	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "attach arbitrary files instead of capturing")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag name (required when capturing)")

	return cmd
}

func capture(ctx context.Context, items *repository.ItemRepository, title, memo, photo string, tagIDs []uint) (uint, error) {
	if len(tagIDs) != 1 {
		return 0, fmt.Errorf("capturing requires exactly one --tag")
	}

	req := repository.CaptureRequest{
		Title: title,
		Memo:  memo,
		TagID: tagIDs[0],
	}

	if photo != "" {
		f, err := os.Open(photo)
		if err != nil {
			return 0, fmt.Errorf("failed to open photo: %w", err)
		}
		defer f.Close()
		req.Photo = f
	}

	return items.Capture(ctx, req).Await(ctx)
}

func addFiles(ctx context.Context, items *repository.ItemRepository, title, memo string, paths []string, tagIDs []uint) (uint, error) {
	backend := items.Backend()

	var files []models.ItemFile
	for _, p := range paths {
		mimeType := mime.TypeByExtension(filepath.Ext(p))
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}

		loc, err := storage.CopyFile(ctx, backend, p, mimeType)
		if err != nil {
			for _, f := range files {
				backend.Delete(ctx, f.FilePath)
			}
			return 0, fmt.Errorf("failed to store '%s': %w", p, err)
		}

		files = append(files, models.ItemFile{
			FilePath: loc.RelativePath,
			FileName: loc.FileName,
			FileType: models.FileTypeForMime(mimeType),
			FileSize: loc.Size,
			MimeType: loc.MimeType,
		})
	}

	item := models.Item{Title: title, Description: memo}
	return items.CreateItem(ctx, item, files, tagIDs).Await(ctx)
}

func NewItemListCommand() *cobra.Command {
	var tag string

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List items",
		Long:  "List all items, newest first, optionally only those carrying a tag.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithAgent(cmd, func(ctx context.Context, ma *agent.MemoboxAgent) error {
				var (
					items []models.Item
					err   error
				)

				if tag != "" {
					ids, err := resolveTagIDs(ctx, ma.Tags(), []string{tag})
					if err != nil {
						return err
					}
					items, err = ma.Items().GetItemsByTag(ctx, ids[0]).Await(ctx)
					if err != nil {
						return err
					}
				} else {
					items, err = ma.Items().GetAllItems(ctx).Await(ctx)
					if err != nil {
						return err
					}
				}

				printItems(cmd.OutOrStdout(), items)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "only list items with this tag")

	return cmd
}

func NewItemShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an item",
		Long:  "Show an item with its files and tags and mark it as viewed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return runWithAgent(cmd, func(ctx context.Context, ma *agent.MemoboxAgent) error {
				item, err := ma.Items().GetItemByID(ctx, id).Await(ctx)
				if err != nil {
					return err
				}
				ma.Items().UpdateLastViewed(ctx, id)

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Item %d\n", item.ID)
				fmt.Fprintf(out, "  Title:       %s\n", orDash(item.Title))
				fmt.Fprintf(out, "  Description: %s\n", orDash(item.Description))
				fmt.Fprintf(out, "  Created:     %s\n", item.CreatedAt.Local().Format("2006-01-02 15:04:05"))
				fmt.Fprintf(out, "  Updated:     %s\n", humanize.Time(item.UpdatedAt))

				names := make([]string, 0, len(item.Tags))
				for _, t := range item.Tags {
					names = append(names, t.Name)
				}
				fmt.Fprintf(out, "  Tags:        %v\n", names)

				if len(item.Files) > 0 {
					fmt.Fprintln(out)
					printFiles(out, item.Files)
				}
				return nil
			})
		},
	}

	return cmd
}

func NewItemEditCommand() *cobra.Command {
	var (
		title string
		memo  string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit title or description of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return runWithAgent(cmd, func(ctx context.Context, ma *agent.MemoboxAgent) error {
				item, err := ma.Items().GetItemByID(ctx, id).Await(ctx)
				if err != nil {
					return err
				}

				if cmd.Flags().Changed("title") {
					item.Title = title
				}
				if cmd.Flags().Changed("memo") {
					item.Description = memo
				}

				if _, err := ma.Items().UpdateItem(ctx, *item).Await(ctx); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Updated item %d\n", id)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&memo, "memo", "m", "", "new description")

	return cmd
}

func NewItemRecentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently viewed items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithAgent(cmd, func(ctx context.Context, ma *agent.MemoboxAgent) error {
				items, err := ma.Items().GetRecentlyViewedItems(ctx).Await(ctx)
				if err != nil {
					return err
				}

				printItems(cmd.OutOrStdout(), items)
				return nil
			})
		},
	}

	return cmd
}

func NewItemRemoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an item and its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return runWithAgent(cmd, func(ctx context.Context, ma *agent.MemoboxAgent) error {
				result, err := ma.Items().DeleteItem(ctx, id).Await(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Deleted item %d (%d files removed)\n", id, len(result.Deleted))
				for _, p := range result.Missing {
					fmt.Fprintf(out, "  already gone: %s\n", p)
				}
				for _, p := range result.Kept {
					fmt.Fprintf(out, "  still in use: %s\n", p)
				}
				for _, f := range result.Failed {
					fmt.Fprintf(out, "  not removed: %s: %v\n", f.Path, f.Err)
				}
				return nil
			})
		},
	}

	return cmd
}

func NewItemTagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag <id> <tag>",
		Short: "Add a tag to an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return changeItemTag(cmd, args, true)
		},
	}

	return cmd
}

func NewItemUntagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "untag <id> <tag>",
		Short: "Remove a tag from an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return changeItemTag(cmd, args, false)
		},
	}

	return cmd
}

func changeItemTag(cmd *cobra.Command, args []string, add bool) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	return runWithAgent(cmd, func(ctx context.Context, ma *agent.MemoboxAgent) error {
		tagIDs, err := resolveTagIDs(ctx, ma.Tags(), args[1:])
		if err != nil {
			return err
		}

		if add {
			_, err = ma.Items().AddTagToItem(ctx, id, tagIDs[0]).Await(ctx)
		} else {
			_, err = ma.Items().RemoveTagFromItem(ctx, id, tagIDs[0]).Await(ctx)
		}
		return err
	})
}

func NewItemFilesCommand() *cobra.Command {
	var fileType string

	cmd := &cobra.Command{
		Use:   "files [id]",
		Short: "List the files of an item or of all items by type",
		Long:  "List the files of the item with the given id. With --type the files of all items of that type (image, text, other) are listed instead.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && fileType == "" {
				return fmt.Errorf("an item id or --type is required")
			}
			if len(args) > 0 && fileType != "" {
				return fmt.Errorf("an item id and --type cannot be combined")
			}

			if fileType != "" {
				ft, err := parseFileType(fileType)
				if err != nil {
					return err
				}

				return runWithAgent(cmd, func(ctx context.Context, ma *agent.MemoboxAgent) error {
					files, err := ma.Items().GetFilesByType(ctx, ft).Await(ctx)
					if err != nil {
						return err
					}

					printFiles(cmd.OutOrStdout(), files)
					return nil
				})
			}

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return runWithAgent(cmd, func(ctx context.Context, ma *agent.MemoboxAgent) error {
				files, err := ma.Items().GetFilesByItemID(ctx, id).Await(ctx)
				if err != nil {
					return err
				}

				printFiles(cmd.OutOrStdout(), files)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&fileType, "type", "t", "", "list files of all items with this type (image, text, other)")

	return cmd
}

func parseFileType(value string) (models.FileType, error) {
	switch ft := models.FileType(strings.ToUpper(strings.TrimSpace(value))); ft {
	case models.FileTypeImage, models.FileTypeText, models.FileTypeOther:
		return ft, nil
	default:
		return "", fmt.Errorf("unknown file type '%s'", value)
	}
}

func NewItemCatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat <path>",
		Short: "Write a stored file to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithAgent(cmd, func(ctx context.Context, ma *agent.MemoboxAgent) error {
				rc, err := ma.Items().OpenFile(ctx, args[0])
				if err != nil {
					return err
				}
				defer rc.Close()

				_, err = io.Copy(cmd.OutOrStdout(), rc)
				return err
			})
		},
	}

	return cmd
}
