package mcp

import "github.com/Aman-CERP/contentsearch/internal/search"

// Tool names.
const (
	ToolSearchContent = "search_content"
	ToolListProviders = "list_providers"
)

// SearchContentInput defines the input schema for the search_content tool.
type SearchContentInput struct {
	Query    string   `json:"query" jsonschema:"the free-text query to execute"`
	Category string   `json:"category,omitempty" jsonschema:"provider to search: page, block or media; default page"`
	Roots    []string `json:"roots,omitempty" jsonschema:"content references whose subtrees bound the search (OR logic)"`
	Limit    int      `json:"limit,omitempty" jsonschema:"maximum number of results per language partition"`
	Culture  string   `json:"culture,omitempty" jsonschema:"preferred culture for edit links of non-localizable content, e.g. sv"`
	Roles    []string `json:"roles,omitempty" jsonschema:"reader roles of the caller; Everyone is always included"`
	User     string   `json:"user,omitempty" jsonschema:"caller user name"`
}

// SearchContentOutput defines the output schema for the search_content tool.
type SearchContentOutput struct {
	Provider string           `json:"provider" jsonschema:"name of the provider that ran the search"`
	Results  []*search.Result `json:"results" jsonschema:"results in partition order"`
}

// ListProvidersInput defines the input schema for the list_providers tool (no parameters).
type ListProvidersInput struct{}

// ListProvidersOutput defines the output schema for the list_providers tool.
type ListProvidersOutput struct {
	Providers []ProviderInfo `json:"providers" jsonschema:"registered providers in sort order"`
}

// ProviderInfo is the identity metadata of a registered provider.
type ProviderInfo struct {
	Name             string `json:"name"`
	Area             string `json:"area"`
	Category         string `json:"category"`
	SortOrder        int    `json:"sort_order"`
	IncludeInvariant bool   `json:"include_invariant"`
}

// request converts the tool input to a provider request.
func (in SearchContentInput) request() search.Request {
	return search.Request{
		Query:      in.Query,
		Roots:      in.Roots,
		MaxResults: in.Limit,
		Culture:    in.Culture,
		Principal:  search.Principal{Name: in.User, Roles: in.Roles},
	}
}
