package tools

import "net/http"

// ParamType is the JSON type advertised in a tool's input schema.
type ParamType string

const (
	String  ParamType = "string"
	Number  ParamType = "number"
	Boolean ParamType = "boolean"
)

// Param describes one tool argument. Arguments named in the path template
// are substituted there; the rest become query or body fields.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
}

// Definition maps one MCP tool onto one feedback API call.
type Definition struct {
	Name        string
	Description string
	Method      string
	Path        string
	Params      []Param
}

var (
	boardID  = Param{Name: "board_id", Type: String, Description: "Board identifier", Required: true}
	postID   = Param{Name: "post_id", Type: String, Description: "Post identifier", Required: true}
	limit    = Param{Name: "limit", Type: Number, Description: "Maximum number of results"}
	cursor   = Param{Name: "cursor", Type: String, Description: "Pagination cursor from a previous call"}
	optBoard = Param{Name: "board_id", Type: String, Description: "Restrict results to one board"}
)

// Definitions is the full tool table served by the gateway.
var Definitions = []Definition{
	// boards
	{
		Name:        "list_boards",
		Description: "List all feedback boards.",
		Method:      http.MethodGet,
		Path:        "/boards",
	},
	{
		Name:        "get_board",
		Description: "Get a single feedback board.",
		Method:      http.MethodGet,
		Path:        "/boards/{board_id}",
		Params:      []Param{boardID},
	},

	// posts
	{
		Name:        "list_posts",
		Description: "List feedback posts, optionally filtered by board or status.",
		Method:      http.MethodGet,
		Path:        "/posts",
		Params: []Param{
			optBoard,
			{Name: "status", Type: String, Description: "Post status, e.g. open, planned, in_progress, complete"},
			{Name: "sort", Type: String, Description: "Sort order: newest, oldest, votes"},
			limit,
			cursor,
		},
	},
	{
		Name:        "get_post",
		Description: "Get a single feedback post.",
		Method:      http.MethodGet,
		Path:        "/posts/{post_id}",
		Params:      []Param{postID},
	},
	{
		Name:        "create_post",
		Description: "Create a feedback post on a board.",
		Method:      http.MethodPost,
		Path:        "/posts",
		Params: []Param{
			boardID,
			{Name: "title", Type: String, Description: "Short summary of the feedback", Required: true},
			{Name: "details", Type: String, Description: "Longer description"},
			{Name: "author_email", Type: String, Description: "Email of the person giving feedback"},
		},
	},
	{
		Name:        "update_post",
		Description: "Update the title, details or status of a feedback post.",
		Method:      http.MethodPatch,
		Path:        "/posts/{post_id}",
		Params: []Param{
			postID,
			{Name: "title", Type: String, Description: "New title"},
			{Name: "details", Type: String, Description: "New description"},
			{Name: "status", Type: String, Description: "New status"},
		},
	},
	{
		Name:        "delete_post",
		Description: "Delete a feedback post.",
		Method:      http.MethodDelete,
		Path:        "/posts/{post_id}",
		Params:      []Param{postID},
	},

	// comments
	{
		Name:        "list_comments",
		Description: "List the comments on a feedback post.",
		Method:      http.MethodGet,
		Path:        "/posts/{post_id}/comments",
		Params:      []Param{postID, limit, cursor},
	},
	{
		Name:        "create_comment",
		Description: "Add a comment to a feedback post.",
		Method:      http.MethodPost,
		Path:        "/posts/{post_id}/comments",
		Params: []Param{
			postID,
			{Name: "body", Type: String, Description: "Comment text", Required: true},
			{Name: "internal", Type: Boolean, Description: "Only visible to the team"},
		},
	},

	// votes
	{
		Name:        "vote_post",
		Description: "Upvote a feedback post on behalf of a user.",
		Method:      http.MethodPost,
		Path:        "/posts/{post_id}/votes",
		Params: []Param{
			postID,
			{Name: "voter_email", Type: String, Description: "Email of the voter"},
		},
	},

	// tags
	{
		Name:        "list_tags",
		Description: "List the tags available for categorising posts.",
		Method:      http.MethodGet,
		Path:        "/tags",
		Params:      []Param{optBoard},
	},
}
