package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/franz/photobooth/internal/compose"
	"github.com/franz/photobooth/internal/photo"
	"github.com/franz/photobooth/internal/store"
	"github.com/franz/photobooth/internal/util"
	"github.com/spf13/cobra"
)

var photosCmd = &cobra.Command{
	Use:   "photos",
	Short: "List, inspect, filter and delete photos",
}

var photosListCmd = &cobra.Command{
	Use:   "list",
	Short: "List photos, newest first",
	RunE:  runPhotosList,
}

var photosShowCmd = &cobra.Command{
	Use:   "show <photo-id>",
	Short: "Show a photo's record and metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runPhotosShow,
}

var photosDeleteCmd = &cobra.Command{
	Use:   "delete <photo-id>...",
	Short: "Delete photos and their files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPhotosDelete,
}

var photosFilterCmd = &cobra.Command{
	Use:   "filter <photo-id>",
	Short: "Save a filtered copy of a photo",
	Long: `Apply a colour filter followed by brightness and contrast adjustments.
The result is saved as a new photo linked to the original.

Filters: none, grayscale, sepia, invert. Brightness and contrast are
percentages where 100 leaves the image unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: runPhotosFilter,
}

var photosURLCmd = &cobra.Command{
	Use:   "url <photo-id | media URL>",
	Short: "Translate between a photo file and its media URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runPhotosURL,
}

func init() {
	rootCmd.AddCommand(photosCmd)
	photosCmd.AddCommand(photosListCmd, photosShowCmd, photosDeleteCmd, photosFilterCmd, photosURLCmd)

	photosListCmd.Flags().Int("limit", 50, "maximum photos to list (0 = all)")
	photosListCmd.Flags().Int("offset", 0, "photos to skip")
	photosListCmd.Flags().String("session", "", "only photos of this session")

	photosFilterCmd.Flags().StringP("filter", "f", string(compose.FilterNone), "colour filter")
	photosFilterCmd.Flags().Int("brightness", 100, "brightness in percent")
	photosFilterCmd.Flags().Int("contrast", 100, "contrast in percent")
}

func runPhotosList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	sessionID, _ := cmd.Flags().GetString("session")

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	var photos []*store.Photo
	if sessionID != "" {
		photos, err = a.sessions.Photos(ctx, sessionID)
	} else {
		photos, err = a.photos.List(ctx, limit, offset)
	}
	if err != nil {
		return err
	}
	if len(photos) == 0 {
		util.WarnLog("No photos found. Run 'booth shoot' first.")
		return nil
	}

	rows := make([][]string, 0, len(photos))
	for _, p := range photos {
		rows = append(rows, []string{
			p.ID,
			p.TakenAt.Local().Format("2006-01-02 15:04:05"),
			string(p.LayoutType),
			fmt.Sprintf("%dx%d", p.Width, p.Height),
			util.FormatBytes(p.FileSize),
			photoFlags(p),
			p.Filename,
		})
	}
	fmt.Println(renderTable(
		[]string{"ID", "Taken", "Layout", "Size", "File Size", "Flags", "File"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	))
	return nil
}

func photoFlags(p *store.Photo) string {
	var flags string
	if p.HasOverlay {
		flags += "T"
	}
	if p.HasFilter {
		flags += "F"
	}
	if flags == "" {
		return "-"
	}
	return flags
}

func runPhotosShow(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.photos.Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	display, link := photo.DisplayPath(p), ""
	if display != "" {
		link = photo.MediaURL(display)
	} else {
		display = "(missing)"
	}
	rows := [][]string{
		{"ID", p.ID},
		{"Session", p.SessionID},
		{"Taken", p.TakenAt.Local().Format("2006-01-02 15:04:05")},
		{"Layout", string(p.LayoutType)},
		{"Dimensions", fmt.Sprintf("%dx%d", p.Width, p.Height)},
		{"File Size", util.FormatBytes(p.FileSize)},
		{"File", p.Filepath},
		{"Thumbnail", p.ThumbnailPath},
		{"Display", display},
		{"URL", link},
		{"Template", strconv.FormatBool(p.HasOverlay)},
		{"Filter", strconv.FormatBool(p.HasFilter)},
	}
	fmt.Println(renderTable([]string{"Field", "Value"}, rows, nil))

	meta, err := photo.DecodeMetadata(p.Metadata)
	if err != nil {
		util.WarnLog("Unreadable metadata: %v", err)
		return nil
	}
	switch m := meta.(type) {
	case *photo.CaptureMetadata:
		util.InfoLog("Captured %d shot(s) on %s", m.PhotoCount, m.Device)
	case *photo.FilterMetadata:
		util.InfoLog("Filter %s (brightness %d%%, contrast %d%%) of %s",
			m.Filter.Type, m.Filter.Brightness, m.Filter.Contrast, m.OriginalPhotoID)
	case *photo.TemplateMetadata:
		util.InfoLog("Template %q applied %s", m.TemplateName, m.AppliedAt.Local().Format("2006-01-02 15:04:05"))
		if m.OriginalPhotoID != "" {
			util.InfoLog("Original: %s", m.OriginalPhotoID)
		}
	case map[string]any:
		util.InfoLog("Metadata: %v", m)
	}
	return nil
}

func runPhotosDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	b, err := a.newBooth()
	if err != nil {
		return err
	}

	ctx := context.Background()
	for _, id := range args {
		p, err := b.DeletePhoto(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to delete %s: %w", id, err)
		}
		util.SuccessLog("Deleted %s", p.Filename)
	}
	return nil
}

func runPhotosFilter(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("filter")
	brightness, _ := cmd.Flags().GetInt("brightness")
	contrast, _ := cmd.Flags().GetInt("contrast")
	f := compose.Filter{Type: compose.FilterType(name), Brightness: brightness, Contrast: contrast}
	if err := f.Validate(); err != nil {
		return err
	}
	if f.IsIdentity() {
		util.WarnLog("Filter leaves the image unchanged; saving a copy anyway")
	}

	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	b, err := a.newBooth()
	if err != nil {
		return err
	}

	saved, err := b.ApplyFilter(context.Background(), args[0], f)
	if err != nil {
		return err
	}
	util.SuccessLog("Saved %s as %s", saved.Filepath, saved.ID)
	return nil
}

// runPhotosURL accepts either a media URL, printed back as a path,
// or a photo id, printed as the URL of its display file
func runPhotosURL(cmd *cobra.Command, args []string) error {
	if path, err := photo.ResolveMediaURL(args[0]); err == nil {
		fmt.Println(path)
		return nil
	}

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.photos.Get(context.Background(), args[0])
	if err != nil {
		return err
	}
	display := photo.DisplayPath(p)
	if display == "" {
		return fmt.Errorf("no file on disk for %s: %w", p.ID, util.ErrNotFound)
	}
	fmt.Println(photo.MediaURL(display))
	return nil
}
