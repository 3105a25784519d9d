package github

import "time"

// Repo is a partial GitHub repository document with fields we use
type Repo struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Owner       Owner     `json:"owner"`
	Description string    `json:"description"`
	Topics      []string  `json:"topics"`
	Language    string    `json:"language"`
	Fork        bool      `json:"fork"`
	Archived    bool      `json:"archived"`
	Stargazers  int       `json:"stargazers_count"`
	PushedAt    time.Time `json:"pushed_at"`
	HTMLURL     string    `json:"html_url"`
}

// Owner is the login part of a repository owner
type Owner struct {
	Login string `json:"login"`
	Type  string `json:"type"`
}

// User is a partial GitHub user document
type User struct {
	ID          int64     `json:"id"`
	Login       string    `json:"login"`
	Type        string    `json:"type"`
	Name        string    `json:"name"`
	Bio         string    `json:"bio"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	PublicRepos int       `json:"public_repos"`
	CreatedAt   time.Time `json:"created_at"`
	HTMLURL     string    `json:"html_url"`
}
