package ignore

// DefaultIgnorePatterns contains patterns that are always skipped during
// library scans. ROM libraries sit on external drives and accumulate OS
// trash, and artwork dumps can hold tens of thousands of files that are
// never catalogs.
var DefaultIgnorePatterns = []string{
	// Version control
	".git",
	".svn",
	".hg",

	// OS junk
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",
	"System Volume Information",
	"$RECYCLE.BIN",
	".Trashes",
	"lost+found",
	"__MACOSX",

	// Editor and backup leftovers
	"*.bak",
	"*.tmp",
	"*.old",
	"*~",
	"*.swp",

	// Artwork and media dumps that frontends keep next to catalogs
	"media",
	"artwork",
	"covers",
	"snaps",
	"manuals",
	"wheels",

	// Emulator state
	"saves",
	"states",
	"*.sav",
	"*.srm",
}
