package quote

import "quote/model"

const DefaultFooter = "Quote"

// Renderer turns resolved quotes into quote cards.
type Renderer struct {
	Footer string
}

func NewRenderer(footer string) *Renderer {
	if len(footer) == 0 {
		footer = DefaultFooter
	}
	return &Renderer{Footer: footer}
}

func (r *Renderer) Render(q model.ResolvedQuote) model.QuoteCard {
	return model.QuoteCard{
		Title:         "#" + q.ChannelLabel,
		AuthorName:    q.AuthorDisplayName,
		AuthorIconURL: q.AuthorAvatarURL,
		Description:   q.Content,
		URL:           q.Permalink,
		Timestamp:     q.CreatedAt,
		ImageURL:      q.AttachmentURL,
		Footer:        r.Footer,
	}
}

func (r *Renderer) RenderAll(quotes []model.ResolvedQuote) []model.QuoteCard {
	cards := make([]model.QuoteCard, 0, len(quotes))
	for _, q := range quotes {
		cards = append(cards, r.Render(q))
	}
	return cards
}
