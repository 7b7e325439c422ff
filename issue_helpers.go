package salvage

// IssueAt creates an Issue at the given path with provided code, message and params map.
func IssueAt(p Path, code, msg string, params map[string]any) Issue {
	return Issue{Path: p.Pointer(), Code: code, Message: msg, Params: params}
}
