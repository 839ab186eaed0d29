package application

import (
	"context"
	"fmt"

	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/domain"
)

// The methods below back the admin HTTP routes: they resolve ids and wrap
// the detector results in response types.

func (s *Service) CheckArticleByID(ctx context.Context, articleID int64) (SpamCheckResponse, error) {
	if articleID <= 0 {
		return SpamCheckResponse{}, fmt.Errorf("%w: article_id must be positive", domain.ErrInvalidInput)
	}
	article, err := s.content.GetArticle(ctx, articleID)
	if err != nil {
		return SpamCheckResponse{}, err
	}
	verdict, err := s.HandleArticleSpam(ctx, article)
	if err != nil {
		return SpamCheckResponse{}, err
	}
	return SpamCheckResponse{Subject: string(domain.EntityArticle), ID: articleID, Verdict: string(verdict)}, nil
}

func (s *Service) CheckCommentByID(ctx context.Context, commentID int64) (SpamCheckResponse, error) {
	if commentID <= 0 {
		return SpamCheckResponse{}, fmt.Errorf("%w: comment_id must be positive", domain.ErrInvalidInput)
	}
	comment, err := s.content.GetComment(ctx, commentID)
	if err != nil {
		return SpamCheckResponse{}, err
	}
	verdict, err := s.HandleCommentSpam(ctx, comment)
	if err != nil {
		return SpamCheckResponse{}, err
	}
	return SpamCheckResponse{Subject: string(domain.EntityComment), ID: commentID, Verdict: string(verdict)}, nil
}

func (s *Service) CheckUserByID(ctx context.Context, userID int64) (SpamCheckResponse, error) {
	user, err := s.lookupUser(ctx, userID)
	if err != nil {
		return SpamCheckResponse{}, err
	}
	verdict, err := s.HandleUserSpam(ctx, user, s.cfg.FeatureMoreRigorousUserProfileSpamChecking)
	if err != nil {
		return SpamCheckResponse{}, err
	}
	return SpamCheckResponse{Subject: string(domain.EntityUser), ID: userID, Verdict: string(verdict)}, nil
}

func (s *Service) CheckDomainForUser(ctx context.Context, userID int64) (DomainCheckResponse, error) {
	user, err := s.lookupUser(ctx, userID)
	if err != nil {
		return DomainCheckResponse{}, err
	}
	flagged, err := s.CheckAndBlockDomain(ctx, user)
	if err != nil {
		return DomainCheckResponse{}, err
	}
	return DomainCheckResponse{UserID: userID, Domain: user.EmailDomain(), Flagged: flagged}, nil
}

func (s *Service) DetectRingForUser(ctx context.Context, userID int64) (RingDetectionResponse, error) {
	if userID <= 0 {
		return RingDetectionResponse{}, fmt.Errorf("%w: user_id must be positive", domain.ErrInvalidInput)
	}
	detected, err := s.DetectRing(ctx, userID)
	if err != nil {
		return RingDetectionResponse{}, err
	}
	return RingDetectionResponse{UserID: userID, Detected: detected}, nil
}

func (s *Service) lookupUser(ctx context.Context, userID int64) (domain.User, error) {
	if userID <= 0 {
		return domain.User{}, fmt.Errorf("%w: user_id must be positive", domain.ErrInvalidInput)
	}
	return s.users.GetByID(ctx, userID)
}
