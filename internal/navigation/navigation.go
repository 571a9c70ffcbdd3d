// Package navigation picks the screen stack shown for a session state.
package navigation

import "github.com/LAZYDOINDIA/LazyUI/internal/session/domain"

// StackName identifies a top-level screen stack.
type StackName string

const (
	StackLoading   StackName = "Loading"
	StackAuth      StackName = "Auth"
	StackGiverTabs StackName = "GiverTabs"
	StackTakerTabs StackName = "TakerTabs"
)

// Screen is one entry of a stack: a route name, its title and the icon for each focus state.
type Screen struct {
	Name        string
	Title       string
	Icon        string
	FocusedIcon string
}

// Stack is the result of Choose.
type Stack struct {
	Name    StackName
	Screens []Screen
}

// View is the subset of session state navigation depends on.
type View struct {
	Loading         bool
	IsAuthenticated bool
	ActiveRole      domain.Role
}

// ViewOf extracts a View from a session snapshot.
func ViewOf(s domain.Snapshot) View {
	return View{Loading: s.Loading, IsAuthenticated: s.IsAuthenticated(), ActiveRole: s.ActiveRole}
}

var (
	loadingScreens = []Screen{{Name: "Loading", Title: "Loading"}}
	authScreens    = []Screen{
		{Name: "Login", Title: "Login"},
		{Name: "Register", Title: "Register"},
	}
	giverScreens = []Screen{
		{Name: "Home", Title: "My Tasks", Icon: "home-outline", FocusedIcon: "home"},
		{Name: "PostTask", Title: "Post Task", Icon: "add-circle-outline", FocusedIcon: "add-circle"},
		{Name: "Profile", Title: "Profile", Icon: "person-outline", FocusedIcon: "person"},
	}
	takerScreens = []Screen{
		{Name: "Home", Title: "Browse Tasks", Icon: "home-outline", FocusedIcon: "home"},
		{Name: "AcceptedTasks", Title: "My Tasks", Icon: "checkmark-circle-outline", FocusedIcon: "checkmark-circle"},
		{Name: "Profile", Title: "Profile", Icon: "person-outline", FocusedIcon: "person"},
	}
)

// Choose returns the stack for v. Loading wins over everything; an unauthenticated view gets
// the auth stack; GIVER gets the giver tabs and any other role the taker tabs.
func Choose(v View) Stack {
	switch {
	case v.Loading:
		return stack(StackLoading, loadingScreens)
	case !v.IsAuthenticated:
		return stack(StackAuth, authScreens)
	case v.ActiveRole == domain.RoleGiver:
		return stack(StackGiverTabs, giverScreens)
	default:
		return stack(StackTakerTabs, takerScreens)
	}
}

func stack(name StackName, screens []Screen) Stack {
	return Stack{Name: name, Screens: append([]Screen(nil), screens...)}
}

// IconFor returns the icon name of s for the given focus state.
func (s Screen) IconFor(focused bool) string {
	if focused {
		return s.FocusedIcon
	}
	return s.Icon
}
