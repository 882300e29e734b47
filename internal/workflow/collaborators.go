package workflow

import (
	"context"

	"testpilot/internal/complexity"
	"testpilot/internal/git"
	"testpilot/internal/types"
)

// RepositoryClient reports working-tree state. Implemented by git.Git.
type RepositoryClient interface {
	GetStatus(ctx context.Context) (*git.Status, error)
}

// ChangeLister lists changed files for the decision engine.
// Implemented by git.Git.
type ChangeLister interface {
	ChangedFiles(ctx context.Context) ([]types.FileChange, error)
}

// TicketStatus is the ticket system's view of the current work item.
type TicketStatus struct {
	Ticket         string   `json:"ticket"`
	Complete       bool     `json:"complete"`
	RemainingItems []string `json:"remaining_items,omitempty"`
}

// TicketClient checks whether the tracked ticket is complete.
type TicketClient interface {
	TicketStatus(ctx context.Context) (*TicketStatus, error)
}

// DeploymentStatus is the deployment system's health summary.
type DeploymentStatus struct {
	Environment string `json:"environment"`
	Version     string `json:"version"`
	Healthy     bool   `json:"healthy"`
}

// DeploymentClient reports the target environment's deployment state.
type DeploymentClient interface {
	DeploymentStatus(ctx context.Context) (*DeploymentStatus, error)
}

// ReviewStatus summarizes open review threads on the current change.
type ReviewStatus struct {
	OpenComments int  `json:"open_comments"`
	AllResolved  bool `json:"all_resolved"`
}

// ReviewClient reports code-review comment resolution.
type ReviewClient interface {
	ReviewStatus(ctx context.Context) (*ReviewStatus, error)
}

// Collaborators bundles the external dependencies a workflow may call.
// Nil fields are allowed; workflows skip steps whose collaborator is
// absent.
type Collaborators struct {
	Repository RepositoryClient
	Changes    ChangeLister
	Ticket     TicketClient
	Deployment DeploymentClient
	Review     ReviewClient
	Revisions  complexity.RevisionReader
}
