package storage

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ContentRef computes a CIDv1 content address for an immutable blob. It
// backs the content-addressed entities this package stores — KeyPackages
// and PSK bundles — so publishing the same bytes twice resolves to the
// same storage sub-key instead of accumulating duplicate entries, the way
// a content-addressed blob store (rather than an arbitrarily-keyed one)
// naturally dedupes.
func ContentRef(data []byte) (cid.Cid, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, fmt.Errorf("content ref: %w", err)
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// WriteKeyPackage stores a serialized KeyPackage blob under its own
// content address and returns that address.
func WriteKeyPackage(p *Provider, version uint16, data []byte) (cid.Cid, error) {
	ref, err := ContentRef(data)
	if err != nil {
		return cid.Undef, opErr("write_key_package", LabelKeyPackage, version, err)
	}
	if err := Write(p, LabelKeyPackage, ref.String(), version, data); err != nil {
		return cid.Undef, err
	}
	return ref, nil
}

// ReadKeyPackage loads a previously stored KeyPackage blob by its content
// address.
func ReadKeyPackage(p *Provider, version uint16, ref cid.Cid) ([]byte, bool, error) {
	return Read[[]byte](p, LabelKeyPackage, ref.String(), version)
}

// WritePskBundle stores a serialized PSK bundle under its own content
// address, mirroring WriteKeyPackage.
func WritePskBundle(p *Provider, version uint16, data []byte) (cid.Cid, error) {
	ref, err := ContentRef(data)
	if err != nil {
		return cid.Undef, opErr("write_psk_bundle", LabelPskBundle, version, err)
	}
	if err := Write(p, LabelPskBundle, ref.String(), version, data); err != nil {
		return cid.Undef, err
	}
	return ref, nil
}

// ReadPskBundle loads a previously stored PSK bundle by its content
// address.
func ReadPskBundle(p *Provider, version uint16, ref cid.Cid) ([]byte, bool, error) {
	return Read[[]byte](p, LabelPskBundle, ref.String(), version)
}
