package coco

// Dataset is a COCO-format export: info and license headers, one image per
// data row, one annotation per converted tool instance, and one category per
// ontology feature.
type Dataset struct {
	Info        Info         `json:"info"`
	Licenses    []License    `json:"licenses"`
	Images      []Image      `json:"images"`
	Annotations []Annotation `json:"annotations"`
	Categories  []Category   `json:"categories"`
}

// Info describes the exported project.
type Info struct {
	Description string `json:"description"`
	URL         string `json:"url"`
	Version     string `json:"version"`
	Year        int    `json:"year"`
	Contributor string `json:"contributor,omitempty"`
	DateCreated string `json:"date_created"`
}

// License is a placeholder license entry; the platform does not track
// per-image licensing.
type License struct {
	URL  string `json:"url"`
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Image is one data row in COCO image form.
type Image struct {
	License      int    `json:"license"`
	FileName     string `json:"file_name"`
	Height       int    `json:"height"`
	Width        int    `json:"width"`
	DateCaptured string `json:"date_captured,omitempty"`
	ID           string `json:"id"`
	CocoURL      string `json:"coco_url"`
}

// Annotation is one converted tool instance. Which fields are set depends on
// the tool type: bbox sets BBox; line and point set Keypoints; polygon and
// mask set Segmentation, BBox, Area, and IsCrowd.
type Annotation struct {
	ImageID      string      `json:"image_id"`
	ID           string      `json:"id,omitempty"`
	CategoryID   int         `json:"category_id"`
	BBox         []float64   `json:"bbox,omitempty"`
	Segmentation [][]float64 `json:"segmentation,omitempty"`
	Area         float64     `json:"area,omitempty"`
	IsCrowd      *int        `json:"iscrowd,omitempty"`
	Keypoints    []float64   `json:"keypoints,omitempty"`
	NumKeypoints int         `json:"num_keypoints,omitempty"`
}

// Category maps one ontology feature to its compact encoded-value id. Line
// categories carry a keypoint skeleton sized to the longest converted line.
type Category struct {
	Supercategory string   `json:"supercategory"`
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	Keypoints     []string `json:"keypoints,omitempty"`
	Skeleton      [][2]int `json:"skeleton,omitempty"`
}
