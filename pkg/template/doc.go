// Package template fills response tokens with values captured while matching.
//
// A token is written <% key %>, with optional whitespace inside the
// delimiters. Keys come from the capturing groups of the stub's request
// patterns:
//
//   - <% url.1 %> - first group of the url pattern
//   - <% url.id %> - named group "id" of the url pattern
//   - <% query.page.1 %> - first group of the "page" query parameter pattern
//   - <% headers.x-tenant.1 %> - first group of the "x-tenant" header pattern
//   - <% post.1 %> - first group of the post body pattern
//
// Group 0 is the whole matched value. Tokens without a value are left in the
// output unchanged so a missing capture is visible rather than silently empty.
package template
