package prompts

import "fmt"

func GetSiteCodeChangePrompt(userQuery string, contextFiles string) (string, string) {
	prompt := `
		User's instruction:
		---
		%s
		---

		Here are the existing files of the project:
		---
		%s
		---

		The same rules as the original generation apply: React and ReactDOM are globals,
		no import statements, and the top-level component is named App.

		Please respond with updated or new files in the following format:
		` + "```json" + `
		{
		"files": [
			{
				"filename": "components/Hero.jsx",
				"type": "jsx",
				"content": "..."
			}
		]
		}
		` + "```" + `

		Only return the modified or newly added files, each with its complete new content.
		Do not include duplicates or files that were not changed.
	`

	fullprompt := fmt.Sprintf(prompt, userQuery, contextFiles)
	ragSystemPrompt := `
		You are a code assistant helping to **update an existing project**.
		Respond ONLY with a JSON object whose "files" array contains the modified or new files.
	`

	return fullprompt, ragSystemPrompt
}
