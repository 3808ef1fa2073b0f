// Package prompt builds the instruction prompt sent along with each document image.
package prompt

import (
	"fmt"
	"strings"

	"docscan/config"
	"docscan/extract"
)

// Instructions asks for a JSON description of the document in Hebrew. The last line tells the
// model to ask for a new upload instead of answering when the image quality is poor.
const Instructions = `Please provide a JSON input that includes the following details:

1. Document Description: Describe what this document is.
2. Image Quality Assessment: Evaluate the quality of the image within the document.
3. Extracted Attributes: List all attributes or key pieces of information you can identify in the document.

Return the JSON output in Hebrew.

אם איכות התמונה לא טובה אל תחזיר JSON ותבקש לעלות את התמונה מחדש`

// Builder assembles the prompt from the instructions and the configured examples.
type Builder struct {
	examplesDocx string
	examplesDir  string
}

func NewBuilder(cfg config.PromptConfig) *Builder {
	return &Builder{
		examplesDocx: cfg.ExamplesDocx,
		examplesDir:  cfg.ExamplesDir,
	}
}

// Build reads the examples on every call so edits to the example files apply without a restart.
func (b *Builder) Build() (string, error) {
	var examples []string

	if b.examplesDocx != "" {
		text, err := extract.DocxFile(b.examplesDocx)
		if err != nil {
			return "", fmt.Errorf("reading examples from %s: %w", b.examplesDocx, err)
		}
		examples = append(examples, text)
	}

	if b.examplesDir != "" {
		text, err := FolderExamples(b.examplesDir)
		if err != nil {
			return "", fmt.Errorf("reading examples from %s: %w", b.examplesDir, err)
		}
		examples = append(examples, text)
	}

	return Render(Instructions, strings.Join(examples, "\n\n")), nil
}

// Render wraps the instructions and the example text in their tags.
func Render(instructions, example string) string {
	var b strings.Builder
	b.WriteString("<instructions>\n")
	b.WriteString(instructions)
	b.WriteString("\n</instructions>\n\n<example>\n")
	b.WriteString(example)
	b.WriteString("\n</example>\n")
	return b.String()
}
