package template

// Context carries the token values for one response.
type Context struct {
	Tokens map[string]string
}

// NewContext creates a Context over tokens. A nil map is allowed.
func NewContext(tokens map[string]string) *Context {
	if tokens == nil {
		tokens = make(map[string]string)
	}
	return &Context{Tokens: tokens}
}

// Lookup returns the value for key.
func (c *Context) Lookup(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := c.Tokens[key]
	return v, ok
}
