package mail

import (
	"fmt"

	"demodesk/model"
)

// decisionMessage renders the liked or rejected notification.
func decisionMessage(meta model.DemoMetadata, liked bool) (subject, body string) {
	if liked {
		subject = fmt.Sprintf("We liked your demo \"%s\"", meta.Title)
		body = fmt.Sprintf(
			"Hi %s,\n\n"+
				"Good news: \"%s\" caught our ear and has moved forward in our review.\n"+
				"We'll be in touch if the label decides to take it further.\n\n"+
				"Thanks for sending your music our way.\n",
			meta.Artist, meta.Title)
		return subject, body
	}

	subject = fmt.Sprintf("Your demo \"%s\"", meta.Title)
	body = fmt.Sprintf(
		"Hi %s,\n\n"+
			"Thank you for submitting \"%s\". After listening, we've decided it isn't\n"+
			"the right fit for the label at this time.\n\n"+
			"We appreciate you thinking of us, and we'd be glad to hear future work.\n",
		meta.Artist, meta.Title)
	return subject, body
}
