package widget

import "github.com/xinzuo/storefront-services/internal/delivery/postcode"

// Keys the suggestion list responds to, named as browsers report them.
const (
	KeyDown   = "ArrowDown"
	KeyUp     = "ArrowUp"
	KeyEnter  = "Enter"
	KeyEscape = "Escape"
)

// Navigator tracks keyboard highlight over a suggestion list. Up and down
// wrap around; nothing is highlighted until the first arrow press.
type Navigator struct {
	items     []postcode.Entry
	highlight int
	open      bool
}

// NewNavigator returns a closed navigator with no suggestions.
func NewNavigator() *Navigator {
	return &Navigator{highlight: -1}
}

// SetItems replaces the suggestions and resets the highlight. The list is
// open when there is at least one item.
func (n *Navigator) SetItems(items []postcode.Entry) {
	n.items = items
	n.highlight = -1
	n.open = len(items) > 0
}

func (n *Navigator) Items() []postcode.Entry { return n.items }

// Open reports whether the suggestion list is showing.
func (n *Navigator) Open() bool { return n.open }

// Highlighted returns the highlighted index, or -1.
func (n *Navigator) Highlighted() int { return n.highlight }

func (n *Navigator) Down() {
	if !n.open {
		return
	}
	n.highlight = (n.highlight + 1) % len(n.items)
}

func (n *Navigator) Up() {
	if !n.open {
		return
	}
	if n.highlight <= 0 {
		n.highlight = len(n.items) - 1
		return
	}
	n.highlight--
}

// Enter selects the highlighted entry and closes the list.
func (n *Navigator) Enter() (postcode.Entry, bool) {
	if !n.open || n.highlight < 0 {
		return postcode.Entry{}, false
	}
	e := n.items[n.highlight]
	n.Dismiss()
	return e, true
}

// Dismiss closes the list and clears the suggestions.
func (n *Navigator) Dismiss() {
	n.items = nil
	n.highlight = -1
	n.open = false
}

// KeyResult reports what a key press did.
type KeyResult struct {
	Selected  *postcode.Entry
	Dismissed bool
	Handled   bool
}

// HandleKey applies a key press. Enter with nothing highlighted is left for
// the caller to treat as a submit.
func (n *Navigator) HandleKey(key string) KeyResult {
	switch key {
	case KeyDown:
		n.Down()
		return KeyResult{Handled: n.open}
	case KeyUp:
		n.Up()
		return KeyResult{Handled: n.open}
	case KeyEnter:
		if e, ok := n.Enter(); ok {
			return KeyResult{Selected: &e, Handled: true}
		}
		return KeyResult{}
	case KeyEscape:
		wasOpen := n.open
		n.Dismiss()
		return KeyResult{Dismissed: true, Handled: wasOpen}
	}
	return KeyResult{}
}
