package vision

import "testing"

func Test_NMS_SuppressesOverlaps(t *testing.T) {

	faces := []scrfdFace{
		{x1: 0, y1: 0, x2: 100, y2: 100, score: 0.7},
		{x1: 10, y1: 10, x2: 110, y2: 110, score: 0.9},
		{x1: 300, y1: 300, x2: 400, y2: 400, score: 0.5},
	}

	got := nms(faces, 0.4)

	if len(got) != 2 {
		t.Fatalf("nms() kept %d faces, want 2", len(got))
	}
	if got[0].score != 0.9 {
		t.Errorf("nms()[0].score = %v, want the top detection first", got[0].score)
	}
	if got[1].score != 0.5 {
		t.Errorf("nms()[1].score = %v, want the distant detection kept", got[1].score)
	}
}

func Test_NMS_KeepsDisjointBoxes(t *testing.T) {

	faces := []scrfdFace{
		{x1: 0, y1: 0, x2: 50, y2: 50, score: 0.6},
		{x1: 60, y1: 60, x2: 110, y2: 110, score: 0.8},
	}

	got := nms(faces, 0.4)

	if len(got) != 2 {
		t.Fatalf("nms() kept %d faces, want 2", len(got))
	}
	if got[0].score < got[1].score {
		t.Errorf("nms() not sorted by descending score: %v, %v", got[0].score, got[1].score)
	}
}

func Test_NMS_Empty(t *testing.T) {

	if got := nms(nil, 0.4); len(got) != 0 {
		t.Errorf("nms(nil) = %v, want empty", got)
	}
}

func Test_IoU(t *testing.T) {

	tests := []struct {
		name string
		a, b scrfdFace
		want float32
	}{
		{
			name: "identical boxes",
			a:    scrfdFace{x1: 0, y1: 0, x2: 10, y2: 10},
			b:    scrfdFace{x1: 0, y1: 0, x2: 10, y2: 10},
			want: 1,
		},
		{
			name: "disjoint boxes",
			a:    scrfdFace{x1: 0, y1: 0, x2: 10, y2: 10},
			b:    scrfdFace{x1: 20, y1: 20, x2: 30, y2: 30},
			want: 0,
		},
		{
			name: "half overlap",
			a:    scrfdFace{x1: 0, y1: 0, x2: 10, y2: 10},
			b:    scrfdFace{x1: 0, y1: 5, x2: 10, y2: 15},
			want: 50.0 / 150.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := iou(tt.a, tt.b); got != tt.want {
				t.Errorf("iou() = %v, want %v", got, tt.want)
			}
		})
	}
}
