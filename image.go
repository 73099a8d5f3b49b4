// Copyright © 2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scenerender

// image.go implements Image/ImageManager, adapted from vu's texture.go
// (name+tag keyed 2D image wrapper) generalized into a
// bindless-descriptor-array model: every image gets a stable slot
// index, and every unused slot is bound to a singleton blankImage
// sentinel rather than left empty — the same "scan for the sentinel"
// allocation idiom used for shadow-map slots (see light.go's
// LightManager.EnableShadowCasting).

import (
	"github.com/ashenvale/scenerender/gpu"
)

// Image is a GPU image plus its stable bindless descriptor slot.
type Image struct {
	Width, Height int
	Format        string

	slot    int
	backing gpu.Image
}

// Slot returns this image's index into the bindless texture descriptor
// array (Set 0's BINDING_TEXTURES).
func (img *Image) Slot() int { return img.slot }

// ImageManager owns every Image and the bindless descriptor array they
// share, always keeping a blankImage fallback at slot 0.
type ImageManager struct {
	pool *ResourceManager[Image]

	dev      gpu.Device
	slots    []gpu.Image // index == descriptor slot; nil/blank sentinel otherwise.
	blank    gpu.Image
	blankID  ID
	capacity int

	textureUpdated bool
}

// NewImageManager builds an ImageManager with imageCapacity descriptor
// slots, creating the blankImage fallback immediately so every slot is
// always bound to either a specific image or blankImage. No blank cube
// map fallback is created.
func NewImageManager(dev gpu.Device, imageCapacity int) (*ImageManager, error) {
	blank, err := dev.CreateImage(1, 1, "RGBA8", "blankImage")
	if err != nil {
		return nil, &BackendFailureError{Op: "create blankImage", Err: err}
	}
	im := &ImageManager{
		pool:     NewResourceManager[Image]("image", imageCapacity),
		dev:      dev,
		slots:    make([]gpu.Image, imageCapacity),
		blank:    blank,
		capacity: imageCapacity,
	}
	for i := range im.slots {
		im.slots[i] = blank
	}
	id, _, err := im.pool.Create(Image{Width: 1, Height: 1, Format: "RGBA8", slot: 0, backing: blank})
	if err != nil {
		return nil, err
	}
	im.blankID = id
	return im, nil
}

// BlankImage returns the handle of the always-present fallback image.
func (im *ImageManager) BlankImage() ID { return im.blankID }

// TextureUpdated reports whether the bindless descriptor array changed
// since the last call to ClearTextureUpdated.
func (im *ImageManager) TextureUpdated() bool { return im.textureUpdated }

// ClearTextureUpdated resets the dirty flag after the renderer has
// rebound the descriptor array.
func (im *ImageManager) ClearTextureUpdated() { im.textureUpdated = false }

// Create uploads pixels synchronously on the graphics queue (a one-shot
// command list performs the UNDEFINED -> COPY_DST -> SHADER_READ
// transitions) and assigns the image a bindless slot by scanning for
// one still bound to blankImage.
func (im *ImageManager) Create(pixels []byte, w, h int, format string) (ID, error) {
	cmd, err := im.dev.CreateCommandList(gpu.QueueGraphic)
	if err != nil {
		return InvalidID, &BackendFailureError{Op: "create upload command list", Err: err}
	}
	backing, err := im.dev.CreateImage(w, h, format, "image")
	if err != nil {
		return InvalidID, &BackendFailureError{Op: "create image", Err: err}
	}
	if err := cmd.Begin(); err != nil {
		return InvalidID, &BackendFailureError{Op: "begin upload", Err: err}
	}
	cmd.Barrier(backing, gpu.StateUndefined, gpu.StateCopyDst)
	cmd.Barrier(backing, gpu.StateCopyDst, gpu.StateShaderStorage)
	if err := cmd.End(); err != nil {
		return InvalidID, &BackendFailureError{Op: "end upload", Err: err}
	}
	if err := im.dev.GraphicQueue().Submit(cmd, nil, nil, nil); err != nil {
		return InvalidID, &BackendFailureError{Op: "submit upload", Err: err}
	}

	slot, err := im.allocSlot()
	if err != nil {
		return InvalidID, err
	}
	im.slots[slot] = backing
	im.textureUpdated = true

	id, _, err := im.pool.Create(Image{Width: w, Height: h, Format: format, slot: slot, backing: backing})
	return id, err
}

// allocSlot scans for the first slot still bound to blankImage, the
// same sentinel-scan approach LightManager uses for shadow-map slots.
func (im *ImageManager) allocSlot() (int, error) {
	for i, s := range im.slots {
		if s == im.blank && i != 0 { // slot 0 is reserved for blankImage itself.
			return i, nil
		}
	}
	return 0, outOfCapacity("image descriptor slot", im.capacity)
}

// Destroy releases id's descriptor slot back to blankImage.
func (im *ImageManager) Destroy(id ID) error {
	img, err := im.pool.Get(id)
	if err != nil {
		return err
	}
	im.slots[img.slot] = im.blank
	im.textureUpdated = true
	return im.pool.Destroy(id)
}

// Get returns the Image for id.
func (im *ImageManager) Get(id ID) (*Image, error) { return im.pool.Get(id) }
