package prompt

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var exampleImageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// FolderExamples concatenates every example image in dir, base64-encoded, with the JSON output
// stored next to it under the same base name. Problems with a single pair are reported inline
// so that one broken example does not drop the rest.
func FolderExamples(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !exampleImageExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		imageData, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return "", err
		}

		jsonPath := filepath.Join(dir, strings.TrimSuffix(name, filepath.Ext(name))+".json")
		raw, err := os.ReadFile(jsonPath)
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(&b, "No corresponding JSON file found for %s\n\n", name)
			continue
		}
		if err != nil {
			return "", err
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, raw, "", "    "); err != nil {
			fmt.Fprintf(&b, "Error reading JSON file %s: %v\n\n", name, err)
			continue
		}

		fmt.Fprintf(&b, "Example Input (Base64) for %s:\n%s\n\n", name, base64.StdEncoding.EncodeToString(imageData))
		fmt.Fprintf(&b, "Output (JSON content) for %s:\n%s\n\n", name, pretty.String())
	}
	return b.String(), nil
}
