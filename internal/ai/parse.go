package ai

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"ai_builder_server/internal/sanitizer"
	"ai_builder_server/internal/types"
	"ai_builder_server/internal/utils"
)

// wrapperKeys are the object keys models tend to put the file list under.
var wrapperKeys = []string{"files", "changes", "result", "code", "data", "output"}

// parseGeneratedFiles reads the model's file list. It accepts a JSON array,
// an object wrapping the array under one of wrapperKeys, or a single file
// object, each optionally inside a Markdown fence.
func parseGeneratedFiles(output string) ([]types.GeneratedFile, error) {
	cleaned := sanitizer.SanitizeJSON(output)

	var files []types.GeneratedFile
	arrayErr := json.Unmarshal([]byte(cleaned), &files)
	if arrayErr == nil {
		return files, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &wrapper); err == nil {
		for _, key := range wrapperKeys {
			raw, ok := wrapper[key]
			if !ok {
				continue
			}
			if err := json.Unmarshal(raw, &files); err == nil {
				return files, nil
			}
			var single types.GeneratedFile
			if err := json.Unmarshal(raw, &single); err == nil && single.Filename != "" {
				return []types.GeneratedFile{single}, nil
			}
		}

		var single types.GeneratedFile
		if err := json.Unmarshal([]byte(cleaned), &single); err == nil && single.Filename != "" {
			return []types.GeneratedFile{single}, nil
		}
	}

	return nil, fmt.Errorf("%w (tried array, wrapped keys and single object): %v", ErrUnparsable, arrayErr)
}

// toSourceFiles converts parsed files into project files. Entries without a
// file name are dropped; later duplicates of a path replace earlier ones.
func toSourceFiles(generated []types.GeneratedFile) []types.SourceFile {
	out := make([]types.SourceFile, 0, len(generated))
	index := make(map[string]int, len(generated))
	for _, gf := range generated {
		p := strings.TrimPrefix(strings.TrimSpace(gf.Filename), "./")
		if p == "" {
			continue
		}
		fileType := gf.Type
		if fileType == "" {
			fileType = utils.DetermineFileType(p) // Fallback
		}
		f := types.SourceFile{
			Name:    path.Base(p),
			Path:    p,
			Type:    strings.ToLower(fileType),
			Content: gf.Content,
		}
		if i, ok := index[p]; ok {
			out[i] = f
			continue
		}
		index[p] = len(out)
		out = append(out, f)
	}
	return out
}
