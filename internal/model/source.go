package model

// ConflictSource pairs a sync tool with the marker it embeds in conflict names.
type ConflictSource struct {
	Name   string `mapstructure:"name" json:"name"`
	Marker string `mapstructure:"marker" json:"marker"`
}

var (
	Syncthing = ConflictSource{Name: "Syncthing", Marker: ".sync-conflict-"}
	Nextcloud = ConflictSource{Name: "Nextcloud", Marker: " (conflicted copy "}
)

// DefaultSources is the processing order used when nothing else is configured.
var DefaultSources = []ConflictSource{Syncthing, Nextcloud}

// FindSource looks a source up by name, case-sensitively.
func FindSource(sources []ConflictSource, name string) (ConflictSource, bool) {
	for _, s := range sources {
		if s.Name == name {
			return s, true
		}
	}

	return ConflictSource{}, false
}
