package media

import (
	"encoding/json"
	"image"
	"log"
)

const (
	PlatformNovelAI         = "NovelAI"
	PlatformStableDiffusion = "StableDiffusion"
	PlatformUnknown         = "Unknown"
)

// MaxMetadataWidth is a cost-control bound: images wider than this skip
// metadata extraction entirely (the stealth scan is per-pixel work)
const MaxMetadataWidth = 2000

// DetectPlatform names the originating platform of a decoded image.
// Standard text fields win over the stealth payload, which is the
// lowest-priority fallback.
func DetectPlatform(img image.Image, info map[string]string) string {
	if _, ok := info["Comment"]; ok {
		return PlatformNovelAI
	}
	if _, ok := info["parameters"]; ok {
		return PlatformStableDiffusion
	}

	payload := DecodeStealth(img)
	if payload == "" {
		return PlatformUnknown
	}
	var full map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &full); err != nil {
		return PlatformUnknown
	}
	if software, ok := full["Software"].(string); ok && software != "" {
		return software
	}
	return PlatformUnknown
}

// ExtractMetadata produces the metadata mapping for a decoded image with
// the same field precedence as DetectPlatform. It never fails: any parse
// error is logged and collapses to an empty mapping, and images wider than
// MaxMetadataWidth return one immediately.
func ExtractMetadata(img image.Image, info map[string]string) map[string]interface{} {
	metadata := make(map[string]interface{})
	if img.Bounds().Dx() > MaxMetadataWidth {
		return metadata
	}

	if comment, ok := info["Comment"]; ok { // NovelAI
		if err := json.Unmarshal([]byte(comment), &metadata); err != nil {
			log.Printf("media: failed to parse Comment field: %v", err)
			return make(map[string]interface{})
		}
		software := info["Software"]
		if software == "" {
			software = PlatformNovelAI
		}
		metadata["Software"] = software
		metadata["Source"] = info["Source"]
		metadata["Title"] = info["Title"]
		return metadata
	}

	if params, ok := info["parameters"]; ok { // Stable Diffusion
		metadata["prompt"] = params
		metadata["Software"] = PlatformStableDiffusion
		return metadata
	}

	// stealth payload fallback
	payload := DecodeStealth(img)
	if payload == "" {
		return metadata
	}
	var full map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &full); err != nil {
		log.Printf("media: failed to parse stealth payload: %v", err)
		return make(map[string]interface{})
	}

	// the payload's Comment field is itself a JSON document holding the
	// prompt fields; an unparsable one defaults to empty
	comment := make(map[string]interface{})
	if raw, ok := full["Comment"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &comment); err != nil {
			comment = make(map[string]interface{})
		}
	}
	for k, v := range comment {
		metadata[k] = v
	}
	metadata["Software"] = full["Software"]
	metadata["Source"] = full["Source"]
	return metadata
}
