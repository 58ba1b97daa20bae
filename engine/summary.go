package engine

import "github.com/tcriess/gift-circle/types"

// Commitment is one giving or receiving line of the final summary,
// derived from an accepted claim. Kind is "offer" or "desire".
type Commitment struct {
	ClaimId         string `json:"claim_id"`
	Kind            string `json:"kind"`
	Title           string `json:"title"`
	Details         string `json:"details"`
	CounterpartId   string `json:"counterpart_id"`
	CounterpartNick string `json:"counterpart_nick"`
	Note            string `json:"note"`
}

// MemberSummary lists what one membership gives and receives.
type MemberSummary struct {
	MemberId  string       `json:"member_id"`
	Nick      string       `json:"nick"`
	Giving    []Commitment `json:"giving"`
	Receiving []Commitment `json:"receiving"`
}

// Summary computes the member commitments view consumed by the
// document export: for every membership, what it gives and what it
// receives, derived purely from ACCEPTED claims. Entity statuses are
// not consulted.
func (e *Engine) Summary(roomId string) ([]MemberSummary, error) {
	if _, err := e.room(roomId); err != nil {
		return nil, err
	}
	members, err := e.persister.GetMembers(roomId)
	if err != nil {
		return nil, err
	}
	offers, err := e.persister.GetOffers(roomId)
	if err != nil {
		return nil, err
	}
	desires, err := e.persister.GetDesires(roomId)
	if err != nil {
		return nil, err
	}
	claims, err := e.persister.GetClaims(roomId)
	if err != nil {
		return nil, err
	}

	offerById := make(map[string]*types.Offer, len(offers))
	for _, o := range offers {
		offerById[o.Id] = o
	}
	desireById := make(map[string]*types.Desire, len(desires))
	for _, d := range desires {
		desireById[d.Id] = d
	}
	nickById := make(map[string]string, len(members))
	summaryById := make(map[string]*MemberSummary, len(members))
	result := make([]MemberSummary, 0, len(members))
	for _, m := range members {
		nickById[m.Id] = m.Nick
		summaryById[m.Id] = &MemberSummary{
			MemberId:  m.Id,
			Nick:      m.Nick,
			Giving:    []Commitment{},
			Receiving: []Commitment{},
		}
	}

	for _, claim := range claims {
		if claim.Status != types.ClaimStatusAccepted {
			continue
		}
		switch {
		case claim.OfferId != "":
			offer := offerById[claim.OfferId]
			if offer == nil {
				continue
			}
			// the offer author gives, the claimer receives
			if s := summaryById[offer.AuthorId]; s != nil {
				s.Giving = append(s.Giving, Commitment{
					ClaimId:         claim.Id,
					Kind:            "offer",
					Title:           offer.Title,
					Details:         offer.Details,
					CounterpartId:   claim.ClaimerId,
					CounterpartNick: nickById[claim.ClaimerId],
					Note:            claim.Note,
				})
			}
			if s := summaryById[claim.ClaimerId]; s != nil {
				s.Receiving = append(s.Receiving, Commitment{
					ClaimId:         claim.Id,
					Kind:            "offer",
					Title:           offer.Title,
					Details:         offer.Details,
					CounterpartId:   offer.AuthorId,
					CounterpartNick: nickById[offer.AuthorId],
					Note:            claim.Note,
				})
			}

		case claim.DesireId != "":
			desire := desireById[claim.DesireId]
			if desire == nil {
				continue
			}
			// the claimer fulfills and therefore gives, the desire
			// author receives
			if s := summaryById[claim.ClaimerId]; s != nil {
				s.Giving = append(s.Giving, Commitment{
					ClaimId:         claim.Id,
					Kind:            "desire",
					Title:           desire.Title,
					Details:         desire.Details,
					CounterpartId:   desire.AuthorId,
					CounterpartNick: nickById[desire.AuthorId],
					Note:            claim.Note,
				})
			}
			if s := summaryById[desire.AuthorId]; s != nil {
				s.Receiving = append(s.Receiving, Commitment{
					ClaimId:         claim.Id,
					Kind:            "desire",
					Title:           desire.Title,
					Details:         desire.Details,
					CounterpartId:   claim.ClaimerId,
					CounterpartNick: nickById[claim.ClaimerId],
					Note:            claim.Note,
				})
			}
		}
	}

	for _, m := range members {
		result = append(result, *summaryById[m.Id])
	}
	return result, nil
}
