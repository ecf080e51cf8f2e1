package specialist

import (
	"laila/internal/agent"
)

const (
	GitHubName = "github_agent"
	EmailName  = "email_agent"

	// RecipientsExample is the recipients layout the email profile parses.
	RecipientsExample = "to@example.com; cc:cc@example.com; bcc:bcc@example.com"
)

var (
	taskField = Field{
		Key:         "task",
		Label:       "Task",
		Description: "What the specialist should do",
	}
	contextField = Field{
		Key:         "context",
		Label:       "Context",
		Description: "Everything the specialist needs to know, such as repository, title, body, subject or prior results",
		Block:       true,
	}
)

// NewGitHub builds the GitHub specialist. Its tools come from the GitHub MCP
// server and are opened per invocation.
func NewGitHub(factory *agent.Factory, model string, toolset Toolset) *Specialist {
	return New(Definition{
		Name:        GitHubName,
		Description: "Delegate a GitHub operation (issues, pull requests, repositories) to the GitHub specialist",
		Profile:     GitHubName,
		Model:       model,
		Toolset:     toolset,
		Fields:      []Field{taskField, contextField},
		FailureNote: "An error occurred while executing the GitHub operation.",
	}, factory)
}

// NewEmail builds the email specialist over a local send_email tool.
func NewEmail(factory *agent.Factory, model string, toolset Toolset) *Specialist {
	return New(Definition{
		Name:        EmailName,
		Description: "Delegate composing and sending an email to the email specialist",
		Profile:     EmailName,
		Model:       model,
		Toolset:     toolset,
		Fields: []Field{
			taskField,
			{
				Key:   "recipients",
				Label: "Recipients",
				Description: `Recipients as "to@example.com" or "` + RecipientsExample + `". ` +
					"Separate several addresses in one group with commas.",
			},
			contextField,
		},
		FailureNote: "An error occurred while processing the email.",
	}, factory)
}
