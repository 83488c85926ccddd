package app

import (
	"context"
	"sort"

	"private_chat_service/internal/chat/domain"
	"private_chat_service/pkg/metrics"
)

// ChatPartners one summary per conversation partner, most recent first
func (uc *ConversationUseCase) ChatPartners(ctx context.Context, viewerID string) (summaries []domain.ChatPartnerSummary, err error) {
	defer func() { metrics.ObserveOperation("chat_partners", err) }()

	// 已依時間新到舊, 每個 partner 第一筆即最後訊息
	msgs, err := uc.msgRepo.FindByParty(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	byPartner := make(map[string]*domain.ChatPartnerSummary)
	order := make([]string, 0)
	for _, m := range msgs {
		partner := m.OtherParty(viewerID)
		s, ok := byPartner[partner]
		if !ok {
			s = &domain.ChatPartnerSummary{
				PartnerID:       partner,
				LastMessage:     domain.Resolve(m, viewerID),
				LastMessageAt:   m.CreatedAt,
				LastMessageText: domain.Preview(m, viewerID),
			}
			byPartner[partner] = s
			order = append(order, partner)
		}
		if m.ReceiverID == viewerID && m.Status != domain.StatusRead {
			s.UnreadCount++
		}
	}
	if len(order) == 0 {
		return []domain.ChatPartnerSummary{}, nil
	}

	profiles, err := uc.userRepo.FindProfiles(ctx, order)
	if err != nil {
		return nil, err
	}

	summaries = make([]domain.ChatPartnerSummary, 0, len(order))
	for _, partner := range order {
		p := profiles[partner]
		// 對方封鎖了我: 不顯示
		if p.HasBlocked(viewerID) {
			continue
		}
		s := byPartner[partner]
		if p != nil {
			s.PartnerName = p.FullName
		}
		summaries = append(summaries, *s)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastMessageAt.After(summaries[j].LastMessageAt)
	})
	return summaries, nil
}
