package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[InitiateOAuthMessage]  = (*InitiateOAuthCommand)(nil)
	_ gocmd.Commander[CompleteOAuthMessage]  = (*CompleteOAuthCommand)(nil)
	_ gocmd.Commander[RefreshTokenMessage]   = (*RefreshTokenCommand)(nil)
	_ gocmd.Commander[FetchActivityMessage]  = (*FetchActivityCommand)(nil)
	_ gocmd.Commander[DetectChangesMessage]  = (*DetectChangesCommand)(nil)
	_ gocmd.Commander[CreateBaselineMessage] = (*CreateBaselineCommand)(nil)
	_ gocmd.Commander[UpdateBaselineMessage] = (*UpdateBaselineCommand)(nil)
	_ gocmd.Commander[DeleteBaselineMessage] = (*DeleteBaselineCommand)(nil)
)
