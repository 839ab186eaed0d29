package domain

const (
	EventArticlePublished      = "article.published"
	EventArticleUpdated        = "article.updated"
	EventCommentCreated        = "comment.created"
	EventCommentUpdated        = "comment.updated"
	EventUserRegistered        = "user.registered"
	EventUserProfileUpdated    = "user.profile_updated"
	EventRingAnalysisRequested = "reaction_ring.analysis_requested"
	EventDomainBlockRequested  = "moderation.domain_block_requested"

	EventUserSuspended        = "moderation.user_suspended"
	EventReactionRingDetected = "moderation.reaction_ring_detected"
)

// InboundEventTypes lists every event the consumer dispatches.
var InboundEventTypes = []string{
	EventArticlePublished,
	EventArticleUpdated,
	EventCommentCreated,
	EventCommentUpdated,
	EventUserRegistered,
	EventUserProfileUpdated,
	EventRingAnalysisRequested,
	EventDomainBlockRequested,
}

func IsInboundEvent(eventType string) bool {
	for _, t := range InboundEventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

func CanonicalPartitionKeyPath(eventType string) string {
	switch eventType {
	case EventArticlePublished, EventArticleUpdated:
		return "data.article_id"
	case EventCommentCreated, EventCommentUpdated:
		return "data.comment_id"
	case EventUserRegistered, EventUserProfileUpdated, EventRingAnalysisRequested:
		return "data.user_id"
	case EventDomainBlockRequested:
		return "data.domain"
	default:
		return ""
	}
}
