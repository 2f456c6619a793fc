// Package ui implements an interactive terminal catalog browser using bubbletea's Elm architecture.
//
// Views:
//  1. [MovieListView] : infinite-scrolling catalog with a favorite marker per row
//  2. [FilterView] : genre checklist plus rating and year ranges
//  3. [DetailView] : one movie with its similar titles
//  4. [FavoritesView] : the saved favorites
//  5. [ConfirmView] : yes/no prompt before adding or removing a favorite
//  6. [ErrorView] : full-screen detail load failure
//
// Network work never runs inside Update. The list view asks the [catalog.Controller] to Begin a
// page when the cursor comes within a few rows of the end; the fetch runs in a tea.Cmd and its
// result comes back as a [Msg] that Update hands to Complete.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
