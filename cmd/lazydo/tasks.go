package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/LAZYDOINDIA/LazyUI/internal/api"
	policydomain "github.com/LAZYDOINDIA/LazyUI/internal/policy/domain"
	taskdomain "github.com/LAZYDOINDIA/LazyUI/internal/task/domain"
)

// require fails unless the active role may perform action.
func (a *app) require(ctx context.Context, action policydomain.Action) error {
	role := a.store.ActiveRole()
	if role == "" {
		return errors.New("not signed in")
	}
	ok, err := a.policy.Allowed(ctx, role, action)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s may not %s; switch role first", role, action)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// apiErr turns a 401 into a hint; the client has already dropped the stored credentials.
func apiErr(err error) error {
	if errors.Is(err, api.ErrUnauthorized) {
		return fmt.Errorf("%w: session expired, sign in again", err)
	}
	return err
}

// taskAction builds a command that checks action against the active role and then calls run.
func taskAction(use, short string, args cobra.PositionalArgs, action policydomain.Action,
	run func(ctx context.Context, a *app, cmd *cobra.Command, args []string) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.require(ctx, action); err != nil {
					return err
				}
				v, err := run(ctx, a, cmd, args)
				if err != nil {
					return apiErr(err)
				}
				if v == nil {
					return nil
				}
				return printJSON(cmd.OutOrStdout(), v)
			})
		},
	}
}

func tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Browse, post and manage tasks",
	}

	var filters taskdomain.Filters
	var urgency, status string
	list := taskAction("list", "Browse open tasks", cobra.NoArgs, policydomain.ActionBrowseTasks,
		func(ctx context.Context, a *app, _ *cobra.Command, _ []string) (any, error) {
			filters.Urgency = taskdomain.Urgency(urgency)
			filters.Status = taskdomain.Status(status)
			return a.client.GetTasks(ctx, filters)
		})
	list.Flags().StringVar(&filters.Category, "category", "", "Category filter")
	list.Flags().StringVar(&urgency, "urgency", "", "Low, Medium or High")
	list.Flags().StringVar(&status, "status", "", "Active, Completed or Cancelled")
	list.Flags().StringVar(&filters.Search, "search", "", "Free-text search")

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if !a.store.IsAuthenticated() {
					return errors.New("not signed in")
				}
				t, err := a.client.GetTask(ctx, taskdomain.ID(args[0]))
				if err != nil {
					return apiErr(err)
				}
				return printJSON(cmd.OutOrStdout(), t)
			})
		},
	}

	posted := taskAction("posted", "List tasks you posted", cobra.NoArgs, policydomain.ActionViewPostedTasks,
		func(ctx context.Context, a *app, _ *cobra.Command, _ []string) (any, error) {
			return a.client.GetPostedTasks(ctx)
		})

	accepted := taskAction("accepted", "List tasks you accepted", cobra.NoArgs, policydomain.ActionViewAcceptedTasks,
		func(ctx context.Context, a *app, _ *cobra.Command, _ []string) (any, error) {
			return a.client.GetAcceptedTasks(ctx)
		})

	var nt taskdomain.NewTask
	var ntUrgency string
	create := taskAction("create", "Post a new task", cobra.NoArgs, policydomain.ActionPostTask,
		func(ctx context.Context, a *app, _ *cobra.Command, _ []string) (any, error) {
			if nt.Title == "" {
				return nil, errors.New("--title is required")
			}
			nt.Urgency = taskdomain.Urgency(ntUrgency)
			return a.client.CreateTask(ctx, nt)
		})
	create.Flags().StringVar(&nt.Title, "title", "", "Task title")
	create.Flags().StringVar(&nt.Description, "description", "", "Task description")
	create.Flags().StringVar(&nt.Category, "category", taskdomain.Categories[0], "Category")
	create.Flags().StringVar(&ntUrgency, "urgency", string(taskdomain.UrgencyMedium), "Low, Medium or High")
	create.Flags().Float64Var(&nt.Reward, "reward", 0, "Reward amount")
	create.Flags().StringVar(&nt.TimeLimit, "time-limit", "2 hours", "Time limit")
	create.Flags().StringVar(&nt.Location, "location", "", "Location")

	update := taskAction("update ID", "Edit a task you posted", cobra.ExactArgs(1), policydomain.ActionUpdateTask,
		func(ctx context.Context, a *app, cmd *cobra.Command, args []string) (any, error) {
			var u taskdomain.Update
			f := cmd.Flags()
			if f.Changed("title") {
				v, _ := f.GetString("title")
				u.Title = &v
			}
			if f.Changed("description") {
				v, _ := f.GetString("description")
				u.Description = &v
			}
			if f.Changed("reward") {
				v, _ := f.GetFloat64("reward")
				u.Reward = &v
			}
			if f.Changed("location") {
				v, _ := f.GetString("location")
				u.Location = &v
			}
			return a.client.UpdateTask(ctx, taskdomain.ID(args[0]), u)
		})
	update.Flags().String("title", "", "New title")
	update.Flags().String("description", "", "New description")
	update.Flags().Float64("reward", 0, "New reward")
	update.Flags().String("location", "", "New location")

	del := taskAction("delete ID", "Delete a task you posted", cobra.ExactArgs(1), policydomain.ActionDeleteTask,
		func(ctx context.Context, a *app, cmd *cobra.Command, args []string) (any, error) {
			if err := a.client.DeleteTask(ctx, taskdomain.ID(args[0])); err != nil {
				return nil, err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil, nil
		})

	accept := taskAction("accept ID", "Accept a task", cobra.ExactArgs(1), policydomain.ActionAcceptTask,
		func(ctx context.Context, a *app, _ *cobra.Command, args []string) (any, error) {
			return a.client.AcceptTask(ctx, taskdomain.ID(args[0]))
		})

	setStatus := taskAction("status ID STATUS", "Set a task's status", cobra.ExactArgs(2), policydomain.ActionUpdateTaskStatus,
		func(ctx context.Context, a *app, _ *cobra.Command, args []string) (any, error) {
			s := taskdomain.Status(args[1])
			if !s.Valid() {
				return nil, fmt.Errorf("unknown status %q", args[1])
			}
			return a.client.UpdateTaskStatus(ctx, taskdomain.ID(args[0]), s)
		})

	cmd.AddCommand(list, get, posted, accepted, create, update, del, accept, setStatus)
	return cmd
}

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit the server-side profile",
	}
	cmd.AddCommand(taskAction("get", "Fetch the profile", cobra.NoArgs, policydomain.ActionViewProfile,
		func(ctx context.Context, a *app, _ *cobra.Command, _ []string) (any, error) {
			return a.client.GetProfile(ctx)
		}))

	update := taskAction("update", "Change name or email", cobra.NoArgs, policydomain.ActionViewProfile,
		func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) (any, error) {
			var u api.ProfileUpdate
			if cmd.Flags().Changed("name") {
				v, _ := cmd.Flags().GetString("name")
				u.Name = &v
			}
			if cmd.Flags().Changed("email") {
				v, _ := cmd.Flags().GetString("email")
				u.Email = &v
			}
			return a.client.UpdateProfile(ctx, u)
		})
	update.Flags().String("name", "", "New display name")
	update.Flags().String("email", "", "New email")
	cmd.AddCommand(update)
	return cmd
}
