package scm

import "encoding/json"

// authorPayload covers the two shapes the source-control server returns
// author data in: directly, or nested under a "user" field (as in the
// webhook merge-request payload). A single struct handles both.
type authorPayload struct {
	DisplayName string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
	Author      *struct {
		User struct {
			DisplayName  string `json:"displayName"`
			EmailAddress string `json:"emailAddress"`
		} `json:"user"`
	} `json:"author"`
}

func parseAuthor(body []byte) (Author, error) {
	var p authorPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return Author{}, err
	}
	if p.Author != nil {
		return Author{Name: p.Author.User.DisplayName, Email: p.Author.User.EmailAddress}, nil
	}
	return Author{Name: p.DisplayName, Email: p.EmailAddress}, nil
}
