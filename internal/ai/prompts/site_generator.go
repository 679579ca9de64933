package prompts

import "fmt"

// GenerationSystemPrompt frames every initial generation request.
const GenerationSystemPrompt = `You are a front-end generator AI. You write small React applications that run directly in a browser preview with no build step. Respond ONLY with JSON.`

// GetSiteGenerationPrompt builds the user prompt for a new project.
func GetSiteGenerationPrompt(userPrompt string) string {
	return fmt.Sprintf(`
		A user has submitted the following project description:

		---
		"%s"
		---

		Please create a **multi-file project** based on the following rules:

		1.  **Runtime**: React 18 and ReactDOM are loaded as globals (` + "`React`, `ReactDOM`" + `).
			JSX and TypeScript are transpiled in the browser.
		2.  **No module system**: do not write import statements and do not rely on a bundler.
			Use hooks as ` + "`React.useState`" + `, ` + "`React.useEffect`" + ` and so on.
		3.  **Entry point**: define a top-level component named ` + "`App`" + `. It is mounted into
			the element with id "root". Do not call ReactDOM yourself.
		4.  **Files**: scripts are concatenated in the order you list them, so list
			helpers and child components before the files that use them, and ` + "`App.jsx`" + ` last.
		5.  **Styling**: plain CSS in one or more ` + "`.css`" + ` files. No CSS frameworks.
		6.  **HTML**: an ` + "`index.html`" + ` is optional. If you add one, keep a ` + "`<div id=\"root\"></div>`" + `
			in its body and do not add script tags.

		Respond with a JSON object in the following format:

		` + "```json" + `
		{
		"files": [
			{
				"filename": "components/Navbar.jsx",
				"type": "jsx",
				"content": "..."
			},
			{
				"filename": "App.jsx",
				"type": "jsx",
				"content": "..."
			},
			{
				"filename": "styles.css",
				"type": "css",
				"content": "..."
			}
		]
		}
		` + "```" + `

		Only include code, no extra explanation. Your output will be parsed and saved as project files.
	`, userPrompt)
}
