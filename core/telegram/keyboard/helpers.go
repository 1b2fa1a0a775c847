package keyboard

import tele "gopkg.in/telebot.v4"

// InlineRows builds an inline keyboard from rows of prepared buttons.
func InlineRows(rows ...[]tele.Btn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, len(rows))
	for i, row := range rows {
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = *btn.Inline()
		}
		inline[i] = r
	}
	markup.InlineKeyboard = inline
	return markup
}

// URLMarkup returns a single-button inline keyboard opening the given URL.
func URLMarkup(text, url string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	return InlineRows([]tele.Btn{markup.URL(text, url)})
}

// SwitchInlineMarkup returns a single-button inline keyboard that switches the
// user into inline mode in the current chat with a prefilled query.
func SwitchInlineMarkup(text, query string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	return InlineRows([]tele.Btn{markup.QueryChat(text, query)})
}

// SwitchInlineAnywhereMarkup returns a single-button inline keyboard that asks
// the user to pick a chat and start an inline query there.
func SwitchInlineAnywhereMarkup(text, query string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	return InlineRows([]tele.Btn{markup.Query(text, query)})
}
