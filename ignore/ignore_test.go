package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func Test_Matcher_DefaultPatterns_RecycleBin(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	trashPath := filepath.Join(tmpDir, "$RECYCLE.BIN", "S-1-5-21", "catalog.xml")
	if !matcher.ShouldIgnore(trashPath) {
		t.Error("expected recycle bin files to be ignored")
	}
}

func Test_Matcher_DefaultPatterns_GitDir(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	gitPath := filepath.Join(tmpDir, ".git", "config")
	if !matcher.ShouldIgnore(gitPath) {
		t.Error("expected .git files to be ignored")
	}
}

func Test_Matcher_DefaultPatterns_BackupFiles(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	bakPath := filepath.Join(tmpDir, "Sega - Mega Drive.xml.bak")
	if !matcher.ShouldIgnore(bakPath) {
		t.Error("expected .bak files to be ignored")
	}
}

func Test_Matcher_DefaultPatterns_ArtworkDir(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	artPath := filepath.Join(tmpDir, "media", "covers", "index.xml")
	if !matcher.ShouldIgnore(artPath) {
		t.Error("expected files under media dirs to be ignored")
	}
}

func Test_Matcher_DefaultPatterns_AllowsCatalogFiles(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	catalogPath := filepath.Join(tmpDir, "Nintendo - NES (20240101).xml")
	if matcher.ShouldIgnore(catalogPath) {
		t.Error("expected catalog files to NOT be ignored")
	}
}

func Test_Matcher_GamedexignoreIntegration(t *testing.T) {
	tmpDir := t.TempDir()

	ignoreContent := "*.beta.xml\nincoming/\n"
	os.WriteFile(filepath.Join(tmpDir, IgnoreFileName), []byte(ignoreContent), 0644)

	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	betaPath := filepath.Join(tmpDir, "Sega - Saturn.beta.xml")
	if !matcher.ShouldIgnore(betaPath) {
		t.Error("expected .gamedexignore pattern to ignore *.beta.xml")
	}

	normalPath := filepath.Join(tmpDir, "Sega - Saturn.xml")
	if matcher.ShouldIgnore(normalPath) {
		t.Error("expected normal catalogs to NOT be ignored by .gamedexignore")
	}
}

func Test_Matcher_GamedexignoreReload(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	target := filepath.Join(tmpDir, "work-in-progress.xml")
	if matcher.ShouldIgnore(target) {
		t.Fatal("expected no ignore rules before the file exists")
	}

	os.WriteFile(filepath.Join(tmpDir, IgnoreFileName), []byte("work-in-progress.xml\n"), 0644)
	matcher.Reload()

	if !matcher.ShouldIgnore(target) {
		t.Error("expected reloaded .gamedexignore rules to apply")
	}
}

func Test_Matcher_ExcludePatterns_Doublestar(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{
		RootDir:         tmpDir,
		ExcludePatterns: []string{"mame/**", "**/*.draft.xml"},
	})

	mamePath := filepath.Join(tmpDir, "mame", "arcade", "mame0250.xml")
	if !matcher.ShouldIgnore(mamePath) {
		t.Error("expected mame/** to exclude nested files")
	}

	draftPath := filepath.Join(tmpDir, "sony", "psx.draft.xml")
	if !matcher.ShouldIgnore(draftPath) {
		t.Error("expected **/*.draft.xml to exclude nested drafts")
	}

	keepPath := filepath.Join(tmpDir, "sony", "psx.xml")
	if matcher.ShouldIgnore(keepPath) {
		t.Error("expected unrelated catalogs to survive exclude patterns")
	}
}

func Test_Matcher_ExcludePatterns_Basename(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{
		RootDir:         tmpDir,
		ExcludePatterns: []string{"*.custom"},
	})

	customPath := filepath.Join(tmpDir, "nested", "data.custom")
	if !matcher.ShouldIgnore(customPath) {
		t.Error("expected plain glob to match basenames anywhere")
	}
}

func Test_Matcher_FileSizeLimit(t *testing.T) {
	matcher := NewMatcher(MatcherOptions{
		RootDir:          t.TempDir(),
		MaxFileSizeBytes: 1024,
	})

	if !matcher.IsFileTooLarge(2048) {
		t.Error("expected 2KB file to exceed 1KB limit")
	}
	if matcher.IsFileTooLarge(512) {
		t.Error("expected 512B file to be within 1KB limit")
	}
}

func Test_Matcher_ShouldIgnoreDir(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	tests := []struct {
		dirName string
		ignored bool
	}{
		{".git", true},
		{"System Volume Information", true},
		{"$RECYCLE.BIN", true},
		{"__MACOSX", true},
		{"media", true},
		{"Nintendo - NES", false},
		{"no-intro", false},
	}

	for _, tt := range tests {
		dirPath := filepath.Join(tmpDir, tt.dirName)
		got := matcher.ShouldIgnoreDir(dirPath)
		if got != tt.ignored {
			t.Errorf("ShouldIgnoreDir(%s) = %v, want %v", tt.dirName, got, tt.ignored)
		}
	}
}

func Test_Matcher_DefaultMaxFileSize(t *testing.T) {
	matcher := NewMatcher(MatcherOptions{RootDir: t.TempDir()})
	if matcher.MaxFileSizeBytes() != DefaultMaxFileSizeBytes {
		t.Errorf("expected default max file size %d, got %d", int64(DefaultMaxFileSizeBytes), matcher.MaxFileSizeBytes())
	}
}
