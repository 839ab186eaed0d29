package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/domain"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/ports"
)

var (
	defaultArticleSpamAttributes = []string{"title", "body_markdown"}
	defaultCommentSpamAttributes = []string{"body_markdown"}
	defaultUserSpamAttributes    = []string{"name", "username", "twitter_username", "github_username"}
	rigorousUserSpamAttributes   = []string{"summary", "website_url", "location", "employer_name"}
)

const (
	articleSuspendNote = "Suspended user for too many spammy articles, triggered by autovomit."
	commentSuspendNote = "Suspended user for too many spammy comments, triggered by autovomit."
)

// HandleArticleSpam scores the joined title and body once. Attributes
// override the inspected fields.
func (s *Service) HandleArticleSpam(ctx context.Context, article domain.Article, attributes ...string) (SpamVerdict, error) {
	if len(attributes) == 0 {
		attributes = defaultArticleSpamAttributes
	}
	text, err := articleText(article, attributes)
	if err != nil {
		return "", err
	}
	spam, err := s.heuristics.TriggerSpamFor(ctx, text)
	if err != nil {
		return "", err
	}
	if !spam {
		return VerdictNotSpam, nil
	}
	if err := s.issueSpamReaction(ctx, domain.ArticleRef(article.ID)); err != nil {
		return "", err
	}
	if err := s.suspendIfRepeatOffender(ctx, article.UserID, domain.EntityArticle, articleSuspendNote); err != nil {
		return "", err
	}
	return VerdictSpam, nil
}

// HandleCommentSpam only scores comments written by users the heuristic
// engine still considers new.
func (s *Service) HandleCommentSpam(ctx context.Context, comment domain.Comment, attributes ...string) (SpamVerdict, error) {
	if len(attributes) == 0 {
		attributes = defaultCommentSpamAttributes
	}
	author, err := s.users.GetByID(ctx, comment.UserID)
	if err != nil {
		return "", err
	}
	isNew, err := s.heuristics.UserConsideredNew(ctx, author)
	if err != nil {
		return "", err
	}
	if !isNew {
		return VerdictNotSpam, nil
	}
	text, err := commentText(comment, attributes)
	if err != nil {
		return "", err
	}
	spam, err := s.heuristics.TriggerSpamFor(ctx, text)
	if err != nil {
		return "", err
	}
	if !spam {
		return VerdictNotSpam, nil
	}
	if err := s.issueSpamReaction(ctx, domain.CommentRef(comment.ID)); err != nil {
		return "", err
	}
	if err := s.suspendIfRepeatOffender(ctx, comment.UserID, domain.EntityComment, commentSuspendNote); err != nil {
		return "", err
	}
	return VerdictSpam, nil
}

// HandleUserSpam scores profile fields. moreRigorous widens the inspected
// fields to the free-text profile attributes.
func (s *Service) HandleUserSpam(ctx context.Context, user domain.User, moreRigorous bool) (SpamVerdict, error) {
	attributes := append([]string(nil), defaultUserSpamAttributes...)
	if moreRigorous {
		attributes = append(attributes, rigorousUserSpamAttributes...)
	}
	text, err := userText(user, attributes)
	if err != nil {
		return "", err
	}
	spam, err := s.heuristics.TriggerSpamFor(ctx, text)
	if err != nil {
		return "", err
	}
	if !spam {
		return VerdictNotSpam, nil
	}
	if err := s.issueSpamReaction(ctx, domain.UserRef(user.ID)); err != nil {
		return "", err
	}
	return VerdictSpam, nil
}

func (s *Service) issueSpamReaction(ctx context.Context, target domain.EntityRef) error {
	_, created, err := s.reactions.CreateIfAbsent(ctx, ports.CreateReactionParams{
		UserID:    s.cfg.SystemAccountID,
		Reactable: target,
		Category:  domain.ReactionVomit,
		CreatedAt: s.nowFn(),
	})
	if err != nil {
		return fmt.Errorf("issue spam reaction: %w", err)
	}
	slog.Default().InfoContext(ctx, "spam reaction issued",
		"module", "application.spam",
		"layer", "application",
		"operation", "issue_spam_reaction",
		"outcome", "success",
		"reactable_type", string(target.Kind),
		"reactable_id", target.ID,
		"created", created,
	)
	return nil
}

// suspendIfRepeatOffender reads the offence count and suspends in a second
// step. Two concurrent checks for the same owner may both observe the
// pre-threshold count.
func (s *Service) suspendIfRepeatOffender(ctx context.Context, ownerID int64, kind domain.EntityKind, content string) error {
	count, err := s.reactions.CountByReactorOnOwnedContent(ctx, ownerID, kind, s.cfg.SystemAccountID, domain.ReactionVomit)
	if err != nil {
		return fmt.Errorf("count spam reactions: %w", err)
	}
	if count <= int64(s.cfg.SpamSuspendThreshold) {
		return nil
	}
	return s.Suspend(ctx, ownerID, content)
}

func articleText(a domain.Article, attributes []string) (string, error) {
	values := make([]string, 0, len(attributes))
	for _, attr := range attributes {
		switch attr {
		case "title":
			values = append(values, a.Title)
		case "body_markdown":
			values = append(values, a.BodyMarkdown)
		default:
			return "", fmt.Errorf("%w: unknown article attribute %q", domain.ErrInvalidInput, attr)
		}
	}
	return strings.Join(values, "\n"), nil
}

func commentText(c domain.Comment, attributes []string) (string, error) {
	values := make([]string, 0, len(attributes))
	for _, attr := range attributes {
		switch attr {
		case "body_markdown":
			values = append(values, c.BodyMarkdown)
		default:
			return "", fmt.Errorf("%w: unknown comment attribute %q", domain.ErrInvalidInput, attr)
		}
	}
	return strings.Join(values, "\n"), nil
}

func userText(u domain.User, attributes []string) (string, error) {
	values := make([]string, 0, len(attributes))
	for _, attr := range attributes {
		switch attr {
		case "name":
			values = append(values, u.Name)
		case "username":
			values = append(values, u.Username)
		case "twitter_username":
			values = append(values, u.TwitterUsername)
		case "github_username":
			values = append(values, u.GithubUsername)
		case "summary":
			values = append(values, u.Summary)
		case "website_url":
			values = append(values, u.WebsiteURL)
		case "location":
			values = append(values, u.Location)
		case "employer_name":
			values = append(values, u.EmployerName)
		default:
			return "", fmt.Errorf("%w: unknown user attribute %q", domain.ErrInvalidInput, attr)
		}
	}
	return strings.Join(values, "\n"), nil
}
