package ui

import (
	"strings"

	"habitweb/pkg/rbac"
)

type MenuItem struct {
	Label  string
	Href   string
	NewTab bool
	// Post renders the entry as a form submit.
	Post bool
}

// Menu returns the top-right menu for a page at path.
func Menu(root, path, role string) []MenuItem {
	items := make([]MenuItem, 0, 5)
	if strings.Contains(path, "add") {
		items = append(items, MenuItem{Label: "Reorder", Href: Join(root, "order")})
	} else {
		items = append(items, MenuItem{Label: "Add", Href: Join(root, "add")})
	}
	items = append(items,
		MenuItem{Label: "Lists", Href: Join(root, "lists")},
		MenuItem{Label: "Export", Href: Join(root, "export"), NewTab: true},
	)
	if rbac.HasPermission(role, rbac.PermissionImport) {
		items = append(items, MenuItem{Label: "Import", Href: Join(root, "import")})
	}
	items = append(items, MenuItem{Label: "Logout", Href: "/logout", Post: true})
	return items
}

// Join appends elem to the mount path. An empty root means "/".
func Join(root string, elem ...string) string {
	p := strings.TrimRight(root, "/")
	for _, e := range elem {
		e = strings.Trim(e, "/")
		if e == "" {
			continue
		}
		p += "/" + e
	}
	if p == "" {
		return "/"
	}
	return p
}
