package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/franz/photobooth/internal/compose"
	"github.com/franz/photobooth/internal/layout"
	"github.com/franz/photobooth/internal/templates"
	"github.com/franz/photobooth/internal/util"
	"github.com/spf13/cobra"
)

var templatesCmd = &cobra.Command{
	Use:     "templates",
	Aliases: []string{"template"},
	Short:   "Manage and apply photo templates",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates",
	RunE:  runTemplatesList,
}

var templatesShowCmd = &cobra.Command{
	Use:   "show <template-id>",
	Short: "Show a template and its text overlays",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesShow,
}

var templatesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a template",
	Long: `Create a template. Text overlays are read from a JSON file holding an
array of objects with id, text, x, y, fontSize, color, fontFamily, align and
optional rotation. Overlay text may use {{guestName}}, {{eventDate}} and
{{customText}}.`,
	RunE: runTemplatesCreate,
}

var templatesUpdateCmd = &cobra.Command{
	Use:   "update <template-id>",
	Short: "Change fields of a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesUpdate,
}

var templatesDeleteCmd = &cobra.Command{
	Use:   "delete <template-id>",
	Short: "Delete a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesDelete,
}

var templatesDefaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Install the built-in templates into an empty library",
	RunE:  runTemplatesDefaults,
}

var templatesApplyCmd = &cobra.Command{
	Use:   "apply <photo-id> <template-id>",
	Short: "Save a templated copy of a photo",
	Args:  cobra.ExactArgs(2),
	RunE:  runTemplatesApply,
}

var templatesPreviewCmd = &cobra.Command{
	Use:   "preview <template-id>",
	Short: "Write the SVG text layer of a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesPreview,
}

func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCmd.AddCommand(templatesListCmd, templatesShowCmd, templatesCreateCmd, templatesUpdateCmd,
		templatesDeleteCmd, templatesDefaultsCmd, templatesApplyCmd, templatesPreviewCmd)

	templatesListCmd.Flags().Bool("all", false, "include inactive templates")

	for _, c := range []*cobra.Command{templatesCreateCmd, templatesUpdateCmd} {
		c.Flags().String("name", "", "template name")
		c.Flags().String("description", "", "description")
		c.Flags().String("layout", string(layout.Single), "layout the template is designed for")
		c.Flags().String("frame", "", "frame image drawn over the photo")
		c.Flags().String("background", templates.DefaultBackground, "background colour (#rgb or #rrggbb)")
		c.Flags().Int("width", templates.DefaultWidth, "canvas width")
		c.Flags().Int("height", templates.DefaultHeight, "canvas height")
		c.Flags().String("overlays", "", "JSON file with text overlays")
		c.Flags().Bool("default", false, "mark as a default template")
	}
	templatesUpdateCmd.Flags().Bool("active", true, "whether the template is offered")

	for _, c := range []*cobra.Command{templatesApplyCmd, templatesPreviewCmd} {
		c.Flags().String("guest", "", "value for {{guestName}}")
		c.Flags().String("event-date", "", "value for {{eventDate}}")
		c.Flags().String("text", "", "value for {{customText}}")
	}
	templatesPreviewCmd.Flags().StringP("out", "o", "", "output file (default stdout)")
}

func runTemplatesList(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.templates.List(context.Background(), !all)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		util.WarnLog("No templates. Run 'booth templates defaults' to install the built-in ones.")
		return nil
	}

	rows := make([][]string, 0, len(list))
	for _, t := range list {
		overlays, _ := templates.Overlays(t)
		rows = append(rows, []string{
			t.ID,
			t.Name,
			string(t.LayoutType),
			fmt.Sprintf("%dx%d", t.Width, t.Height),
			strconv.Itoa(len(overlays)),
			yesNo(t.IsDefault),
			yesNo(t.IsActive),
		})
	}
	fmt.Println(renderTable(
		[]string{"ID", "Name", "Layout", "Canvas", "Overlays", "Default", "Active"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	))
	return nil
}

func runTemplatesShow(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.templates.Get(context.Background(), args[0])
	if err != nil {
		return err
	}
	fmt.Println(renderTable([]string{"Field", "Value"}, [][]string{
		{"ID", t.ID},
		{"Name", t.Name},
		{"Description", t.Description},
		{"Layout", string(t.LayoutType)},
		{"Canvas", fmt.Sprintf("%dx%d", t.Width, t.Height)},
		{"Background", t.BackgroundColor},
		{"Frame", t.FramePath},
	}, nil))

	overlays, err := templates.Overlays(t)
	if err != nil {
		return err
	}
	if len(overlays) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(overlays))
	for _, o := range overlays {
		rows = append(rows, []string{
			o.ID,
			o.Text,
			fmt.Sprintf("%.0f,%.0f", o.X, o.Y),
			strconv.FormatFloat(o.FontSize, 'f', -1, 64),
			o.Color,
			o.Align,
		})
	}
	fmt.Println(renderTable([]string{"Overlay", "Text", "Position", "Size", "Colour", "Align"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight}))
	return nil
}

func readOverlays(path string) ([]compose.TextOverlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overlays: %w", err)
	}
	return compose.ParseOverlays(string(data))
}

func runTemplatesCreate(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	in := templates.Input{}
	in.Name, _ = f.GetString("name")
	in.Description, _ = f.GetString("description")
	layoutName, _ := f.GetString("layout")
	in.Layout = layout.Layout(layoutName)
	in.FramePath, _ = f.GetString("frame")
	in.BackgroundColor, _ = f.GetString("background")
	in.Width, _ = f.GetInt("width")
	in.Height, _ = f.GetInt("height")
	in.IsDefault, _ = f.GetBool("default")
	if path, _ := f.GetString("overlays"); path != "" {
		overlays, err := readOverlays(path)
		if err != nil {
			return err
		}
		in.TextOverlays = overlays
	}

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.templates.Create(context.Background(), in)
	if err != nil {
		return err
	}
	util.SuccessLog("Created template %q (%s)", t.Name, t.ID)
	return nil
}

func runTemplatesUpdate(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	var p templates.Patch
	if f.Changed("name") {
		v, _ := f.GetString("name")
		p.Name = &v
	}
	if f.Changed("description") {
		v, _ := f.GetString("description")
		p.Description = &v
	}
	if f.Changed("layout") {
		v, _ := f.GetString("layout")
		l := layout.Layout(v)
		p.Layout = &l
	}
	if f.Changed("frame") {
		v, _ := f.GetString("frame")
		p.FramePath = &v
	}
	if f.Changed("background") {
		v, _ := f.GetString("background")
		p.BackgroundColor = &v
	}
	if f.Changed("width") {
		v, _ := f.GetInt("width")
		p.Width = &v
	}
	if f.Changed("height") {
		v, _ := f.GetInt("height")
		p.Height = &v
	}
	if f.Changed("default") {
		v, _ := f.GetBool("default")
		p.IsDefault = &v
	}
	if f.Changed("active") {
		v, _ := f.GetBool("active")
		p.IsActive = &v
	}
	if f.Changed("overlays") {
		path, _ := f.GetString("overlays")
		overlays, err := readOverlays(path)
		if err != nil {
			return err
		}
		p.TextOverlays = &overlays
	}

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.templates.Update(context.Background(), args[0], p)
	if err != nil {
		return err
	}
	util.SuccessLog("Updated template %q", t.Name)
	return nil
}

func runTemplatesDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.templates.Delete(context.Background(), args[0]); err != nil {
		return err
	}
	util.SuccessLog("Deleted template %s", args[0])
	return nil
}

func runTemplatesDefaults(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.templates.ApplyDefaults(context.Background())
	if err != nil {
		return err
	}
	if n == 0 {
		util.InfoLog("Templates already present, nothing installed")
		return nil
	}
	util.SuccessLog("Installed %d default templates", n)
	return nil
}

func overridesFromFlags(cmd *cobra.Command) compose.Overrides {
	guest, _ := cmd.Flags().GetString("guest")
	eventDate, _ := cmd.Flags().GetString("event-date")
	custom, _ := cmd.Flags().GetString("text")
	return compose.Overrides{GuestName: guest, EventDate: eventDate, CustomText: custom}
}

func runTemplatesApply(cmd *cobra.Command, args []string) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	b, err := a.newBooth()
	if err != nil {
		return err
	}

	saved, err := b.ApplyTemplate(context.Background(), args[0], args[1], overridesFromFlags(cmd))
	if err != nil {
		return err
	}
	util.SuccessLog("Saved %s as %s", saved.Filepath, saved.ID)
	return nil
}

func runTemplatesPreview(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("out")

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	svg, err := a.templates.Markup(context.Background(), args[0], overridesFromFlags(cmd))
	if err != nil {
		return err
	}
	if out == "" {
		fmt.Println(svg)
		return nil
	}
	if err := os.WriteFile(out, []byte(svg), 0644); err != nil {
		return fmt.Errorf("failed to write preview: %w", err)
	}
	util.SuccessLog("Wrote %s", out)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

