package policy

import "artforge/models"

// Ownership and visibility predicates shared by the catalog and interaction
// handlers. Every mutation checks the relevant predicate before touching the
// database.

// CanView reports whether the requester may see the artwork. A nil requester
// is an anonymous visitor.
func CanView(artwork *models.Artwork, requester *models.User) bool {
	if artwork.IsPublic {
		return true
	}
	return requester != nil && requester.ID == artwork.ArtistID
}

// CanModify reports whether the requester owns the artwork.
func CanModify(artwork *models.Artwork, requester *models.User) bool {
	return requester != nil && requester.ID == artwork.ArtistID
}

// CanDeleteComment allows the comment's author (when identified) and the
// artwork's owning artist.
func CanDeleteComment(comment *models.Comment, artwork *models.Artwork, requester *models.User) bool {
	if requester == nil {
		return false
	}
	if comment.AuthorID != nil && *comment.AuthorID == requester.ID {
		return true
	}
	return requester.ID == artwork.ArtistID
}
