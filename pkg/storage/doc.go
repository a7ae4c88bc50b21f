// Package storage writes downloaded note media to disk.
//
// Files are written to a temporary name and renamed into place, so an
// interrupted download never leaves a truncated file behind. Names come
// from note titles and are passed through SanitizeFileName first:
//
//	m, err := storage.NewManager("downloads", false)
//	name := storage.SanitizeFileName(note.Title, "image") + "_" + note.NoteID + "_1.jpg"
//	if !m.IsDownloaded(name) {
//	    _, err = m.Save(body, name)
//	}
package storage
