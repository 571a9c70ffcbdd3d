package domain

// Action is a task operation gated on the active role.
type Action string

const (
	ActionBrowseTasks       Action = "browse_tasks"
	ActionAcceptTask        Action = "accept_task"
	ActionViewAcceptedTasks Action = "view_accepted_tasks"
	ActionUpdateTaskStatus  Action = "update_task_status"
	ActionPostTask          Action = "post_task"
	ActionViewPostedTasks   Action = "view_posted_tasks"
	ActionUpdateTask        Action = "update_task"
	ActionDeleteTask        Action = "delete_task"
	ActionViewProfile       Action = "view_profile"
)

// AllActions lists every action in a stable order.
var AllActions = []Action{
	ActionBrowseTasks,
	ActionAcceptTask,
	ActionViewAcceptedTasks,
	ActionUpdateTaskStatus,
	ActionPostTask,
	ActionViewPostedTasks,
	ActionUpdateTask,
	ActionDeleteTask,
	ActionViewProfile,
}
