package migrate

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// Migrations run unchanged on postgres and sqlite, so types and syntax that
// only one of them understands are rejected.
var dialectOnly = []struct {
	re   *regexp.Regexp
	what string
}{
	{regexp.MustCompile(`(?i)\bJSONB\b`), "JSONB (postgres only, use TEXT)"},
	{regexp.MustCompile(`(?i)\b(BIG)?SERIAL\b`), "SERIAL (postgres only)"},
	{regexp.MustCompile(`(?i)\bTIMESTAMPTZ\b`), "TIMESTAMPTZ (postgres only, use TIMESTAMP)"},
	{regexp.MustCompile(`(?i)\bAUTOINCREMENT\b`), "AUTOINCREMENT (sqlite only)"},
	{regexp.MustCompile(`::`), "'::' casts (postgres only)"},
}

// ValidateDir checks file naming, version uniqueness, goose annotations and
// dialect portability for every migration in dir.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := map[string]string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		name := e.Name()

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := seen[m[1]]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name)
		}
		seen[m[1]] = name

		if err := validateFile(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("migration %q: %w", name, err)
		}
	}

	if len(seen) == 0 {
		return fmt.Errorf("no migrations found in %q", dir)
	}
	return nil
}

func validateFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var (
		up, down  bool
		openBlock int
		lineNo    int
	)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "-- +goose Up":
			if down {
				return fmt.Errorf("line %d: Up section after Down", lineNo)
			}
			up = true
			continue
		case "-- +goose Down":
			if !up {
				return fmt.Errorf("line %d: Down section before Up", lineNo)
			}
			down = true
			continue
		case "-- +goose StatementBegin":
			openBlock++
			if openBlock > 1 {
				return fmt.Errorf("line %d: nested StatementBegin", lineNo)
			}
			continue
		case "-- +goose StatementEnd":
			openBlock--
			if openBlock < 0 {
				return fmt.Errorf("line %d: StatementEnd without StatementBegin", lineNo)
			}
			continue
		}

		if strings.HasPrefix(line, "--") {
			continue
		}
		for _, rule := range dialectOnly {
			if rule.re.MatchString(line) {
				return fmt.Errorf("line %d: %s", lineNo, rule.what)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	switch {
	case !up:
		return fmt.Errorf("missing \"-- +goose Up\"")
	case !down:
		return fmt.Errorf("missing \"-- +goose Down\"")
	case openBlock != 0:
		return fmt.Errorf("unterminated StatementBegin")
	}
	return nil
}
