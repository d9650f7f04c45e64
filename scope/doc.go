// Package scope provides the variable contexts that expressions are
// evaluated against.
//
// A [Context] maps names to values and reads through to an optional base
// context. Bindings may be marked immutable. Assigning a []any or a
// map[string]any stores an observable [List] or [Dict], so that
//
//	ctx.Set("items", []any{1, 2})
//	v, _ := ctx.Get("items")
//	v.(*scope.List).Append(3)
//
// notifies every expression that reads items without reassigning the name.
//
// Contexts, lists and dicts publish [event.Change] values on their buses.
// Observers interested in one name use [Context.Watch], which also follows
// changes made to a base context for names the child does not shadow.
package scope
