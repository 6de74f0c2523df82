package services

import (
	"strconv"

	"github.com/google/uuid"
)

// documentNamespace scopes content-derived document ids.
var documentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://logos.health/documents"))

// DocumentID derives the document id from its raw bytes. Identical bytes
// always yield the same id.
func DocumentID(data []byte) string {
	return uuid.NewMD5(documentNamespace, data).String()
}

// ChunkID derives the id of the chunk at index within a document. It is
// also the vector point id, so re-upserting a document overwrites its points.
func ChunkID(documentID string, index int) string {
	ns, err := uuid.Parse(documentID)
	if err != nil {
		ns = uuid.NewSHA1(documentNamespace, []byte(documentID))
	}
	return uuid.NewSHA1(ns, []byte(strconv.Itoa(index))).String()
}
