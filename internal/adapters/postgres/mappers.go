package postgres

import "github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/domain"

func toDomainUser(rec userModel, roles []string) domain.User {
	out := domain.User{
		ID:                 rec.ID,
		Email:              rec.Email,
		Username:           rec.Username,
		Name:               rec.Name,
		TwitterUsername:    rec.TwitterUsername,
		GithubUsername:     rec.GithubUsername,
		Summary:            rec.Summary,
		WebsiteURL:         rec.WebsiteURL,
		Location:           rec.Location,
		EmployerName:       rec.EmployerName,
		RegisteredAt:       rec.RegisteredAt.UTC(),
		ReputationModifier: rec.ReputationModifier,
	}
	for _, r := range roles {
		out.Roles = append(out.Roles, domain.Role(r))
	}
	return out
}

func toDomainArticle(rec articleModel) domain.Article {
	return domain.Article{
		ID:                rec.ID,
		UserID:            rec.UserID,
		Title:             rec.Title,
		BodyMarkdown:      rec.BodyMarkdown,
		PublishedFromFeed: rec.PublishedFromFeed,
	}
}

func toDomainComment(rec commentModel) domain.Comment {
	return domain.Comment{ID: rec.ID, UserID: rec.UserID, BodyMarkdown: rec.BodyMarkdown}
}

func toDomainReaction(rec reactionModel) domain.Reaction {
	return domain.Reaction{
		ID:     rec.ID,
		UserID: rec.UserID,
		Reactable: domain.EntityRef{
			Kind: domain.EntityKind(rec.ReactableType),
			ID:   rec.ReactableID,
		},
		Category:  domain.ReactionCategory(rec.Category),
		CreatedAt: rec.CreatedAt.UTC(),
	}
}

func toDomainNote(rec noteModel) domain.Note {
	return domain.Note{
		ID:       rec.ID,
		AuthorID: rec.AuthorID,
		Noteable: domain.EntityRef{
			Kind: domain.EntityKind(rec.NoteableType),
			ID:   rec.NoteableID,
		},
		Reason:    domain.NoteReason(rec.Reason),
		Content:   rec.Content,
		CreatedAt: rec.CreatedAt.UTC(),
	}
}

func roleStrings(roles []domain.Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}

func categoryStrings(categories []domain.ReactionCategory) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		out = append(out, string(c))
	}
	return out
}
