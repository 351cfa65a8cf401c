package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/franz/photobooth/internal/store"
	"github.com/franz/photobooth/internal/util"
	"github.com/spf13/cobra"
)

var groupsCmd = &cobra.Command{
	Use:     "groups",
	Aliases: []string{"group"},
	Short:   "Organise photos into named groups",
}

var groupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List groups",
	RunE:  runGroupsList,
}

var groupsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupsCreate,
}

var groupsRenameCmd = &cobra.Command{
	Use:   "update <group-id>",
	Short: "Change the name, description or thumbnail of a group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupsUpdate,
}

var groupsDeleteCmd = &cobra.Command{
	Use:   "delete <group-id>",
	Short: "Delete a group; its photos are kept",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupsDelete,
}

var groupsAddCmd = &cobra.Command{
	Use:   "add <group-id> <photo-id>...",
	Short: "Add photos to a group",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runGroupsAdd,
}

var groupsRemoveCmd = &cobra.Command{
	Use:   "remove <group-id> <photo-id>...",
	Short: "Remove photos from a group",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runGroupsRemove,
}

var groupsShowCmd = &cobra.Command{
	Use:   "show <group-id>",
	Short: "List the photos of a group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupsShow,
}

func init() {
	rootCmd.AddCommand(groupsCmd)
	groupsCmd.AddCommand(groupsListCmd, groupsCreateCmd, groupsRenameCmd, groupsDeleteCmd,
		groupsAddCmd, groupsRemoveCmd, groupsShowCmd)

	for _, c := range []*cobra.Command{groupsCreateCmd, groupsRenameCmd} {
		c.Flags().String("description", "", "description")
		c.Flags().String("thumbnail", "", "thumbnail image path")
	}
	groupsRenameCmd.Flags().String("name", "", "new name")
}

func parseGroupID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid group id %q: %w", s, util.ErrInvalidInput)
	}
	return id, nil
}

func runGroupsList(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	groups, err := a.groups.List(context.Background())
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		util.WarnLog("No groups yet.")
		return nil
	}

	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{
			strconv.FormatInt(g.ID, 10),
			g.Name,
			strconv.Itoa(g.PhotoCount),
			g.Description,
			g.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	fmt.Println(renderTable(
		[]string{"ID", "Name", "Photos", "Description", "Updated"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight},
	))
	return nil
}

func runGroupsCreate(cmd *cobra.Command, args []string) error {
	desc, _ := cmd.Flags().GetString("description")
	thumb, _ := cmd.Flags().GetString("thumbnail")

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	g, err := a.groups.Create(context.Background(), args[0], desc, thumb)
	if err != nil {
		return err
	}
	util.SuccessLog("Created group %q (%d)", g.Name, g.ID)
	return nil
}

func runGroupsUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseGroupID(args[0])
	if err != nil {
		return err
	}
	f := cmd.Flags()
	var p store.GroupPatch
	if f.Changed("name") {
		v, _ := f.GetString("name")
		p.Name = &v
	}
	if f.Changed("description") {
		v, _ := f.GetString("description")
		p.Description = &v
	}
	if f.Changed("thumbnail") {
		v, _ := f.GetString("thumbnail")
		p.ThumbnailPath = &v
	}

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	g, err := a.groups.Update(context.Background(), id, p)
	if err != nil {
		return err
	}
	util.SuccessLog("Updated group %q", g.Name)
	return nil
}

func runGroupsDelete(cmd *cobra.Command, args []string) error {
	id, err := parseGroupID(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.groups.Delete(context.Background(), id); err != nil {
		return err
	}
	util.SuccessLog("Deleted group %d", id)
	return nil
}

func runGroupsAdd(cmd *cobra.Command, args []string) error {
	id, err := parseGroupID(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.groups.AddPhotos(context.Background(), id, args[1:])
	if err != nil {
		return err
	}
	if skipped := len(args[1:]) - n; skipped > 0 {
		util.InfoLog("%d photo(s) already in the group", skipped)
	}
	util.SuccessLog("Added %d photo(s) to group %d", n, id)
	return nil
}

func runGroupsRemove(cmd *cobra.Command, args []string) error {
	id, err := parseGroupID(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.groups.RemovePhotos(context.Background(), id, args[1:])
	if err != nil {
		return err
	}
	util.SuccessLog("Removed %d photo(s) from group %d", n, id)
	return nil
}

func runGroupsShow(cmd *cobra.Command, args []string) error {
	id, err := parseGroupID(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	g, err := a.groups.Get(ctx, id)
	if err != nil {
		return err
	}
	ids, err := a.groups.PhotoIDs(ctx, id)
	if err != nil {
		return err
	}

	util.InfoLog("%s (%d photos)", g.Name, len(ids))
	rows := make([][]string, 0, len(ids))
	for _, pid := range ids {
		p, err := a.photos.Get(ctx, pid)
		if err != nil {
			util.WarnLog("Photo %s: %v", pid, err)
			continue
		}
		rows = append(rows, []string{p.ID, string(p.LayoutType), p.Filepath})
	}
	if len(rows) > 0 {
		fmt.Println(renderTable([]string{"Photo", "Layout", "File"}, rows, nil))
	}
	return nil
}
