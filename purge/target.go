// Package purge turns purge targets into batched Cloudflare purge_cache calls.
package purge

// Kind identifies what a Target purges.
type Kind int

const (
	KindSingleFile Kind = iota
	KindManyFiles
	KindPage
	KindAll
	KindCSS
	KindJavaScript
	KindImages
)

func (k Kind) String() string {
	switch k {
	case KindSingleFile:
		return "single_file"
	case KindManyFiles:
		return "many_files"
	case KindPage:
		return "page"
	case KindAll:
		return "all"
	case KindCSS:
		return "css"
	case KindJavaScript:
		return "javascript"
	case KindImages:
		return "images"
	default:
		return "unknown"
	}
}

// Extension sets scanned for the category kinds.
var (
	CSSExtensions        = []string{"css"}
	JavaScriptExtensions = []string{"js"}
	ImageExtensions      = []string{"jpg", "jpeg", "png", "gif", "svg", "webp"}
)

// Target is one logical thing to purge. Build it with the constructors below.
type Target struct {
	kind   Kind
	paths  []string
	pageID string
}

func SingleFile(path string) Target {
	return Target{kind: KindSingleFile, paths: []string{path}}
}

func ManyFiles(paths ...string) Target {
	return Target{kind: KindManyFiles, paths: append([]string(nil), paths...)}
}

func Page(id string) Target {
	return Target{kind: KindPage, pageID: id}
}

// All purges everything in the zone.
func All() Target { return Target{kind: KindAll} }

func CSS() Target        { return Target{kind: KindCSS} }
func JavaScript() Target { return Target{kind: KindJavaScript} }
func Images() Target     { return Target{kind: KindImages} }

func (t Target) Kind() Kind { return t.kind }

// Paths returns a copy of the file paths or URLs of a SingleFile or ManyFiles target.
func (t Target) Paths() []string {
	return append([]string(nil), t.paths...)
}

func (t Target) PageID() string { return t.pageID }

func (t Target) extensions() []string {
	switch t.kind {
	case KindCSS:
		return CSSExtensions
	case KindJavaScript:
		return JavaScriptExtensions
	case KindImages:
		return ImageExtensions
	default:
		return nil
	}
}
