// Package ui builds the view models of the pages and carries the embedded
// templates and static assets.
package ui

import (
	"encoding/json"
	"html/template"

	"habitweb/config"
)

// ScriptFiles are loaded in this order; later files use earlier ones.
var ScriptFiles = []string{
	"utils.js",
	"settings.js",
	"habit-color.js",
	"habit-sort.js",
	"habit-ui.js",
	"habit-progress.js",
	"habit-filter.js",
	"live.js",
}

// StyleFiles are the stylesheets linked from every page.
var StyleFiles = []string{
	"root.css",
	"animations.css",
}

// Head is everything rendered inside <head>.
type Head struct {
	Title          string
	UmamiWebsiteID string
	IOSStandalone  bool
	Settings       template.JS
	Scripts        []string
	Styles         []string
}

type colorSettings struct {
	Skipped            string `json:"skipped"`
	Completed          string `json:"completed"`
	Incomplete         string `json:"incomplete"`
	LastWeekIncomplete string `json:"last_week_incomplete"`
	DayNumber          string `json:"day_number"`
}

type pageSettings struct {
	Colors    colorSettings `json:"colors"`
	Root      string        `json:"root"`
	HoldDelay int64         `json:"hold_delay_ms"`
}

// NewHead assembles the head of a page titled title.
func NewHead(cfg config.UIConfig, title string) Head {
	if title == "" {
		title = cfg.PageTitle
	}

	settings, _ := json.Marshal(pageSettings{
		Colors: colorSettings{
			Skipped:            cfg.ColorSkipped,
			Completed:          cfg.ColorCompleted,
			Incomplete:         cfg.ColorIncomplete,
			LastWeekIncomplete: cfg.ColorLastWeekIncomplete,
			DayNumber:          cfg.ColorDayNumber,
		},
		Root:      cfg.MountPath,
		HoldDelay: cfg.HoldDelay.Milliseconds(),
	})

	scripts := make([]string, 0, len(ScriptFiles))
	for _, f := range ScriptFiles {
		scripts = append(scripts, StaticPrefix+"/js/"+f)
	}
	styles := make([]string, 0, len(StyleFiles))
	for _, f := range StyleFiles {
		styles = append(styles, StaticPrefix+"/css/"+f)
	}

	return Head{
		Title:          title,
		UmamiWebsiteID: cfg.UmamiWebsiteID,
		IOSStandalone:  cfg.EnableIOSStandalone,
		// json.Marshal escapes <, > and & so the value is safe inside <script>.
		Settings: template.JS("window.HABIT_SETTINGS = " + string(settings) + ";"),
		Scripts:  scripts,
		Styles:   styles,
	}
}
